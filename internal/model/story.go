package model

// Story is a single digest entry derived from one Hacker News item.
// Rank is the item's 1-based position in the ranking list at the time it
// was fetched and is never recomputed afterwards. Pointer fields mirror
// fields the HN API may omit; nil means the API did not send them.
type Story struct {
	ID          int     `json:"id" yaml:"id"`
	Rank        int     `json:"rank" yaml:"rank"`
	Title       string  `json:"title" yaml:"title"`
	URL         string  `json:"url" yaml:"url"`
	HNURL       string  `json:"hn_url" yaml:"hn_url"`
	CommentsURL string  `json:"comments_url" yaml:"comments_url"`
	Score       *int    `json:"score" yaml:"score"`
	By          *string `json:"by" yaml:"by"`
	Time        int64   `json:"time" yaml:"time"`
	TimeISO     string  `json:"time_iso" yaml:"time_iso"`
	Descendants *int    `json:"descendants" yaml:"descendants"`
	KidsCount   int     `json:"kids_count" yaml:"kids_count"`
	Type        string  `json:"type" yaml:"type"`
}

// Digest is the envelope written by the json/yaml/markdown renderers and
// published to Redis. GeneratedAt is the only field derived from "now".
type Digest struct {
	GeneratedAt string  `json:"generated_at" yaml:"generated_at"`
	List        string  `json:"story_list" yaml:"story_list"`
	Limit       int     `json:"limit" yaml:"limit"`
	Hours       int     `json:"hours" yaml:"hours"`
	Count       int     `json:"count" yaml:"count"`
	Items       []Story `json:"items" yaml:"items"`
}
