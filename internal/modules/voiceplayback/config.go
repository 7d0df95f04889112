package voiceplayback

// Config holds the module's environment-sourced settings: the
// Lavalink node this core delegates all audio decoding/streaming to.
type Config struct {
	LavalinkAddress  string `env:"LAVALINK_ADDRESS,notEmpty"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD,notEmpty"`
}
