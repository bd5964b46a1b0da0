package linkgw

const RouterPing = "/ping"

const RouterDiscordStart = "/api/auth/discord/start"
const RouterDiscordCallback = "/api/auth/discord/callback"
const RouterXStart = "/api/auth/x/start"
const RouterXCallback = "/api/auth/x/callback"
const RouterLinks = "/api/auth/links"
const RouterLinkVerify = "/api/auth/link/verify"

// Flow cookies live only between start and callback.
const DiscordStateCookie = "lnl_state"
const DiscordWalletCookie = "lnl_wallet"
const XStateCookie = "x_oauth_state"
const XVerifierCookie = "x_oauth_verifier"
const XWalletCookie = "x_oauth_wallet"

const defaultListenAddr = ":8000"
const defaultFlowTTLSeconds = 600
const defaultLinkTokenTTLSeconds = 600
const defaultProviderRateLimit = 10
const defaultProviderBurst = 20
