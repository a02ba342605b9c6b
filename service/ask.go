package service

import (
	"context"
	"fmt"

	"github.com/vaidya-ai/vaidya/llm"
	"github.com/vaidya-ai/vaidya/safety"
)

const notCoveredAnswer = "The corpus does not cover this question, so no grounded answer can be given."

func (r *AskRequest) init() {
	if r.Limit <= 0 {
		r.Limit = 6
	}
	if r.MaxContextChars <= 0 {
		r.MaxContextChars = 12000
	}
	if r.Temperature <= 0 {
		r.Temperature = 0.2
	}
	if r.Logf == nil {
		r.Logf = func(string, ...any) {}
	}
}

// Ask answers a question from the corpus: the question is screened, the
// top passages retrieved and numbered, and the answer generated against
// that ledger only. Questions the screen refuses never reach retrieval
// or the model.
func (s *Service) Ask(ctx context.Context, req *AskRequest) (*AskResponse, error) {
	if req.Corpus == "" || req.Question == "" {
		return nil, fmt.Errorf("corpus and question are required")
	}
	req.init()

	assessment := s.filter.AssessQuestion(req.Question)
	resp := &AskResponse{
		Safety:     assessment,
		Disclaimer: safety.Disclaimer,
	}
	if assessment.Level == safety.Refuse {
		req.Logf("question refused: %v", assessment.Reasons)
		resp.Answer = safety.RefusalMessage
		return resp, nil
	}
	if assessment.Level == safety.Caution {
		resp.Notice = safety.CautionNotice
	}

	hits, err := s.Search(ctx, SearchRequest{
		DBPath:   req.DBPath,
		Corpus:   req.Corpus,
		Query:    req.Question,
		Mode:     SearchHybrid,
		Embedder: req.Embedder,
		Limit:    req.Limit,
		MinScore: req.MinScore,
	})
	if err != nil {
		return nil, err
	}
	resp.Retrieved = len(hits)
	ledger := buildLedger(hits, req.MaxContextChars)
	if len(ledger) == 0 {
		req.Logf("no passages above threshold for question")
		resp.Answer = notCoveredAnswer
		return resp, nil
	}

	var answer string
	generator := s.resolveGenerator(req.Generator)
	if generator == nil {
		answer = extractiveAnswer(ledger, 3)
	} else {
		out, err := generator.Generate(ctx, &llm.GenerateRequest{
			System:      askSystemPrompt,
			Prompt:      assemblePrompt(req.Question, ledger),
			Temperature: req.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("generate answer: %w", err)
		}
		answer = out.Text
		resp.Model = out.Model
		req.Logf("generated answer: model=%v prompt_tokens=%v completion_tokens=%v",
			out.Model, out.PromptTokens, out.CompletionTokens)
	}

	answer, citations := verifyCitations(answer, ledger)
	answer = s.filter.SanitizeAnswer(answer, assessment)
	resp.Answer = answer
	resp.Citations = citations
	resp.Answered = true
	return resp, nil
}
