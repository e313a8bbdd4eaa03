package version

// AppName identifies the CLI in telemetry and the injected User-Agent.
const AppName = "awsidr"

// Current is stamped by the release pipeline via -ldflags.
var Current = "1.4.0"
