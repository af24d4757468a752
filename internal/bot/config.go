package bot

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Default number of quiz questions per session
	DefaultQuizLength int
	// Default number of new vocabulary cards created per /vocab call
	DefaultVocabBatch int
	// Maximum number of cards shown by /progress
	ProgressLimit int
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		DefaultQuizLength: 10,
		DefaultVocabBatch: 10,
		ProgressLimit:     15,
	}
}
