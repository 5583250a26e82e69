package model

import "time"

// ResolverConfig tunes the entity matching cascade. The thresholds are
// empirically chosen; validate changes against labeled data before relying
// on them.
type ResolverConfig struct {
	// Fuzzy matching parameters
	MatchThreshold      float64 `json:"match_threshold"`       // global score floor
	ShortNameThreshold  float64 `json:"short_name_threshold"`  // floor for short canonical names
	ShortNameLength     int     `json:"short_name_length"`     // names below this length use ShortNameThreshold
	WordOverlapCutoff   float64 `json:"word_overlap_cutoff"`   // minimum word-overlap fraction to score at all
	ContainmentScore    float64 `json:"containment_score"`     // score when one name contains the other
	PatternScoreFloor   float64 `json:"pattern_score_floor"`   // word-overlap score range lower bound
	PatternScoreCeiling float64 `json:"pattern_score_ceiling"` // word-overlap score range upper bound

	// Normalization parameters
	ExpandAbbreviations bool `json:"expand_abbreviations"`
	DropStopwords       bool `json:"drop_stopwords"`

	// Optional closed type vocabulary; nil leaves the vocabulary open
	Ontology *Ontology `json:"ontology,omitempty"`
}

// DefaultResolverConfig returns a sensible default configuration
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		MatchThreshold:      0.65,
		ShortNameThreshold:  0.85,
		ShortNameLength:     5,
		WordOverlapCutoff:   0.6,
		ContainmentScore:    0.85,
		PatternScoreFloor:   0.70,
		PatternScoreCeiling: 0.90,
		ExpandAbbreviations: true,
		DropStopwords:       true,
	}
}

// WriterConfig tunes graph persistence batching, verification and store
// connection retries.
type WriterConfig struct {
	BatchSize        int           `json:"batch_size"`         // entities/relationships per transaction
	VerifyWrites     bool          `json:"verify_writes"`      // confirm batch visibility after commit
	VerifySampleSize int           `json:"verify_sample_size"` // ids sampled per committed batch
	VerifyRetries    int           `json:"verify_retries"`     // bounded visibility polls
	VerifyInterval   time.Duration `json:"verify_interval"`    // pause between visibility polls
	ConnectRetries   int           `json:"connect_retries"`    // store connect attempts at session init
	ConnectBackoff   time.Duration `json:"connect_backoff"`    // base backoff between connect attempts, doubled each retry
}

// DefaultWriterConfig returns a sensible default configuration
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:        100,
		VerifyWrites:     true,
		VerifySampleSize: 3,
		VerifyRetries:    3,
		VerifyInterval:   100 * time.Millisecond,
		ConnectRetries:   3,
		ConnectBackoff:   500 * time.Millisecond,
	}
}

// Config bundles all behavioral knobs of an ingestion session.
type Config struct {
	Resolver ResolverConfig `json:"resolver"`
	Writer   WriterConfig   `json:"writer"`

	// Document processing parameters
	ChunkSize             int `json:"chunk_size"`             // approximate chunk length in characters
	ExtractionConcurrency int `json:"extraction_concurrency"` // parallel chunk extractions
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		Resolver:              DefaultResolverConfig(),
		Writer:                DefaultWriterConfig(),
		ChunkSize:             DefaultChunkSize,
		ExtractionConcurrency: 4,
	}
}
