package curriculum

// Topic is one study topic of the driving curriculum.
type Topic struct {
	ID      string `yaml:"id" json:"id"`
	Title   string `yaml:"title" json:"title"`
	Icon    string `yaml:"icon" json:"icon"`
	Summary string `yaml:"summary" json:"summary,omitempty"`
	Order   int    `yaml:"order" json:"order"`
}

// topicFile is a YAML document holding several topics.
type topicFile struct {
	Topics []Topic `yaml:"topics"`
}
