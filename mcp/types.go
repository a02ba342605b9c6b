package mcp

import (
	"github.com/vaidya-ai/vaidya/service"
)

type AskInput struct {
	Corpus   string `json:"corpus"`
	Question string `json:"question"`
	Limit    int    `json:"limit,omitempty"`
}

type AskOutput struct {
	Answer *service.AskResponse `json:"answer"`
}

type SearchInput struct {
	Corpus   string  `json:"corpus"`
	Query    string  `json:"query"`
	Mode     string  `json:"mode,omitempty"`
	Limit    int     `json:"limit,omitempty"`
	MinScore float64 `json:"min_score,omitempty"`
}

type SearchOutput struct {
	Results []service.SearchResult `json:"results"`
}

type DraftInput struct {
	Corpus string `json:"corpus"`
	Topic  string `json:"topic,omitempty"`
	JobID  string `json:"job_id,omitempty"`
}

type DraftOutput struct {
	Draft *service.DraftResult `json:"draft"`
}

type DraftStatusInput struct {
	JobID string `json:"job_id"`
}

type CorporaInput struct {
	Corpus string `json:"corpus,omitempty"`
}

type CorporaOutput struct {
	Corpora []service.CorpusInfo `json:"corpora"`
}
