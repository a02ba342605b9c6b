package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/sync/errgroup"

	"github.com/vaidya-ai/vaidya/llm"
	"github.com/vaidya-ai/vaidya/safety"
)

const (
	stageBrief    = "brief"
	stageResearch = "research"
	stageOutline  = "outline"
	stageCompose  = "compose"
	stageReview   = "review"
)

const (
	jobRunning   = "running"
	jobCompleted = "completed"
	jobFailed    = "failed"
)

const researchConcurrency = 4

// Outline headings deeper than this are dropped during validation.
const maxOutlineDepth = 3

type draftBrief struct {
	Topic     string   `json:"topic"`
	Questions []string `json:"questions"`
}

type draftResearch struct {
	Ledger    []Citation       `json:"ledger"`
	Questions map[string][]int `json:"questions"`
}

type draftOutline struct {
	Markdown string   `json:"markdown"`
	Headings []string `json:"headings"`
}

type draftCompose struct {
	Article string `json:"article"`
}

type draftReview struct {
	Article   string     `json:"article"`
	Citations []Citation `json:"citations"`
}

func (r *DraftRequest) init() {
	if r.Questions <= 0 {
		r.Questions = 5
	}
	if r.SectionLimit <= 0 {
		r.SectionLimit = 4
	}
	if r.Logf == nil {
		r.Logf = func(string, ...any) {}
	}
}

// Draft runs the article pipeline for a topic: brief, research, outline,
// compose, review. Each stage persists its output before the next one
// starts, so a job interrupted mid-way resumes at the first incomplete
// stage when called again with its JobID.
func (s *Service) Draft(ctx context.Context, req *DraftRequest) (*DraftResult, error) {
	if req.Corpus == "" {
		return nil, fmt.Errorf("corpus is required")
	}
	if req.Topic == "" && req.JobID == "" {
		return nil, fmt.Errorf("topic or job id is required")
	}
	req.init()

	db, err := s.ensureDB(ctx, req.DBPath, false)
	if err != nil {
		return nil, err
	}
	conn, err := ensureSchemaConn(ctx, db)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	jobID := req.JobID
	if jobID == "" {
		jobID = uuid.NewString()
		if err := createJob(ctx, conn, jobID, req.Corpus, req.Topic); err != nil {
			return nil, err
		}
		req.Logf("draft job %v created for topic %q", jobID, req.Topic)
	} else {
		topic, status, err := loadJob(ctx, conn, jobID)
		if err != nil {
			return nil, err
		}
		if status == jobCompleted {
			return s.DraftStatus(ctx, &DraftStatusRequest{DBPath: req.DBPath, JobID: jobID})
		}
		if req.Topic == "" {
			req.Topic = topic
		}
		req.Logf("draft job %v resumed at status %v", jobID, status)
	}

	run := &draftRun{service: s, conn: conn, req: req, jobID: jobID}
	if err := run.execute(ctx); err != nil {
		_ = updateJob(ctx, conn, jobID, jobFailed, run.current)
		return nil, fmt.Errorf("draft job %v stage %v: %w", jobID, run.current, err)
	}
	if err := updateJob(ctx, conn, jobID, jobCompleted, stageReview); err != nil {
		return nil, err
	}
	return s.DraftStatus(ctx, &DraftStatusRequest{DBPath: req.DBPath, JobID: jobID})
}

// DraftStatus reports a job's stage progression and, when complete, the
// reviewed article with its citations.
func (s *Service) DraftStatus(ctx context.Context, req *DraftStatusRequest) (*DraftResult, error) {
	if req.JobID == "" {
		return nil, fmt.Errorf("job id is required")
	}
	db, err := s.ensureDB(ctx, req.DBPath, false)
	if err != nil {
		return nil, err
	}
	conn, err := ensureSchemaConn(ctx, db)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var result DraftResult
	result.JobID = req.JobID
	if err := conn.QueryRowContext(ctx, `SELECT topic, status FROM draft_job WHERE id = ?`, req.JobID).Scan(&result.Topic, &result.Status); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("draft job %v not found", req.JobID)
		}
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, `SELECT stage, seq, status, updated_at, output FROM draft_stage WHERE job_id = ? ORDER BY seq`, req.JobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reviewOutput string
	for rows.Next() {
		var info StageInfo
		var output sql.NullString
		if err := rows.Scan(&info.Stage, &info.Seq, &info.Status, &info.UpdatedAt, &output); err != nil {
			return nil, err
		}
		result.Stages = append(result.Stages, info)
		if info.Stage == stageReview && output.Valid {
			reviewOutput = output.String
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if reviewOutput != "" {
		var review draftReview
		if err := json.Unmarshal([]byte(reviewOutput), &review); err != nil {
			return nil, fmt.Errorf("decode review output: %w", err)
		}
		result.Article = review.Article
		result.Citations = review.Citations
	}
	return &result, nil
}

type draftRun struct {
	service *Service
	conn    sqlQueryer
	req     *DraftRequest
	jobID   string
	current string

	brief    draftBrief
	research draftResearch
	outline  draftOutline
	compose  draftCompose
}

func (r *draftRun) execute(ctx context.Context) error {
	steps := []struct {
		stage string
		out   any
		run   func(context.Context) error
	}{
		{stageBrief, &r.brief, r.runBrief},
		{stageResearch, &r.research, r.runResearch},
		{stageOutline, &r.outline, r.runOutline},
		{stageCompose, &r.compose, r.runCompose},
		{stageReview, nil, r.runReview},
	}
	for _, step := range steps {
		r.current = step.stage
		if step.out != nil {
			done, err := loadStage(ctx, r.conn, r.jobID, step.stage, step.out)
			if err != nil {
				return err
			}
			if done {
				r.req.Logf("stage %v already complete, skipping", step.stage)
				continue
			}
		}
		if err := updateJob(ctx, r.conn, r.jobID, jobRunning, step.stage); err != nil {
			return err
		}
		if err := step.run(ctx); err != nil {
			return err
		}
		r.req.Logf("stage %v complete", step.stage)
	}
	return nil
}

// runBrief derives the research questions the article must answer.
func (r *draftRun) runBrief(ctx context.Context) error {
	topic := strings.TrimSpace(r.req.Topic)
	generator := r.service.resolveGenerator(r.req.Generator)
	var questions []string
	if generator != nil {
		out, err := generator.Generate(ctx, &llm.GenerateRequest{
			System: "You plan research for short factual articles about classical Ayurveda. Respond with one research question per line, no numbering, nothing else.",
			Prompt: fmt.Sprintf("Article topic: %s\nWrite %d research questions a reader would want answered.", topic, r.req.Questions),
		})
		if err != nil {
			return err
		}
		for _, line := range strings.Split(out.Text, "\n") {
			line = strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. "))
			if line != "" {
				questions = append(questions, line)
			}
		}
	}
	if len(questions) == 0 {
		questions = defaultQuestions(topic)
	}
	if len(questions) > r.req.Questions {
		questions = questions[:r.req.Questions]
	}
	r.brief = draftBrief{Topic: topic, Questions: questions}
	return saveStage(ctx, r.conn, r.jobID, stageBrief, 1, r.brief)
}

func defaultQuestions(topic string) []string {
	return []string{
		fmt.Sprintf("What is %s?", topic),
		fmt.Sprintf("What are the traditional uses of %s?", topic),
		fmt.Sprintf("How is %s prepared or applied?", topic),
		fmt.Sprintf("What properties does %s have?", topic),
		fmt.Sprintf("What precautions apply to %s?", topic),
	}
}

// runResearch retrieves passages per brief question concurrently and
// folds them into one deduplicated, numbered ledger.
func (r *draftRun) runResearch(ctx context.Context) error {
	var mu sync.Mutex
	perQuestion := map[string][]SearchResult{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(researchConcurrency)
	for _, question := range r.brief.Questions {
		g.Go(func() error {
			hits, err := r.service.Search(gctx, SearchRequest{
				DBPath:   r.req.DBPath,
				Corpus:   r.req.Corpus,
				Query:    question,
				Mode:     SearchHybrid,
				Embedder: r.req.Embedder,
				Limit:    r.req.SectionLimit,
			})
			if err != nil {
				return fmt.Errorf("research %q: %w", question, err)
			}
			mu.Lock()
			perQuestion[question] = hits
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	refBySection := map[string]int{}
	research := draftResearch{Questions: map[string][]int{}}
	// Iterate in brief order so ledger numbering is deterministic.
	for _, question := range r.brief.Questions {
		for _, hit := range perQuestion[question] {
			ref, ok := refBySection[hit.SectionID]
			if !ok {
				ref = len(research.Ledger) + 1
				refBySection[hit.SectionID] = ref
				research.Ledger = append(research.Ledger, Citation{
					Ref:       ref,
					DocID:     hit.DocID,
					SectionID: hit.SectionID,
					Title:     hit.Title,
					Text:      strings.TrimSpace(hit.Content),
					Score:     hit.Score,
				})
			}
			research.Questions[question] = append(research.Questions[question], ref)
		}
	}
	if len(research.Ledger) == 0 {
		return fmt.Errorf("no passages found for topic %q", r.brief.Topic)
	}
	r.research = research
	return saveStage(ctx, r.conn, r.jobID, stageResearch, 2, research)
}

// runOutline produces the article's section headings.
func (r *draftRun) runOutline(ctx context.Context) error {
	generator := r.service.resolveGenerator(r.req.Generator)
	var outline draftOutline
	if generator != nil {
		out, err := generator.Generate(ctx, &llm.GenerateRequest{
			System: "You outline short factual articles. Respond in markdown: a single # title line followed by ## section headings. No prose.",
			Prompt: fmt.Sprintf("Topic: %s\nResearch questions:\n- %s\nOutline an article covering these questions.",
				r.brief.Topic, strings.Join(r.brief.Questions, "\n- ")),
		})
		if err != nil {
			return err
		}
		outline = validateOutline(out.Text)
	}
	if len(outline.Headings) < 2 {
		// Fall back to one section per research question.
		outline.Headings = append([]string{r.brief.Topic}, r.brief.Questions...)
		var b strings.Builder
		fmt.Fprintf(&b, "# %s\n", r.brief.Topic)
		for _, q := range r.brief.Questions {
			fmt.Fprintf(&b, "## %s\n", q)
		}
		outline.Markdown = b.String()
	}
	r.outline = outline
	return saveStage(ctx, r.conn, r.jobID, stageOutline, 3, outline)
}

// runCompose writes the article body against the research ledger.
func (r *draftRun) runCompose(ctx context.Context) error {
	generator := r.service.resolveGenerator(r.req.Generator)
	var article string
	if generator != nil {
		var sources strings.Builder
		for _, c := range r.research.Ledger {
			fmt.Fprintf(&sources, "[%d] %s\n%s\n\n", c.Ref, c.SectionID, c.Text)
		}
		out, err := generator.Generate(ctx, &llm.GenerateRequest{
			System: askSystemPrompt,
			Prompt: fmt.Sprintf("Sources:\n%s\nOutline:\n%s\nWrite the article following the outline. Cite every claim with its source number in square brackets.",
				sources.String(), r.outline.Markdown),
		})
		if err != nil {
			return err
		}
		article = out.Text
	} else {
		article = r.composeExtractive()
	}
	r.compose = draftCompose{Article: article}
	return saveStage(ctx, r.conn, r.jobID, stageCompose, 4, r.compose)
}

// composeExtractive assembles an article from ledger excerpts, one
// section per brief question.
func (r *draftRun) composeExtractive() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.brief.Topic)
	for _, question := range r.brief.Questions {
		refs := r.research.Questions[question]
		if len(refs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", question)
		for i, ref := range refs {
			if i >= 2 {
				break
			}
			c := r.research.Ledger[ref-1]
			excerpt := c.Text
			if len(excerpt) > 500 {
				excerpt = truncate(excerpt, 500) + "…"
			}
			fmt.Fprintf(&b, "%s [%d]\n\n", excerpt, ref)
		}
	}
	return strings.TrimSpace(b.String())
}

// runReview verifies citations, applies the safety screen to the body
// and appends the standing disclaimer.
func (r *draftRun) runReview(ctx context.Context) error {
	article, citations := verifyCitations(r.compose.Article, r.research.Ledger)
	assessment := r.service.filter.AssessQuestion(r.brief.Topic)
	article = r.service.filter.SanitizeAnswer(article, assessment)
	if !strings.Contains(article, safety.Disclaimer) {
		article = article + "\n\n---\n" + safety.Disclaimer
	}
	review := draftReview{Article: article, Citations: citations}
	return saveStage(ctx, r.conn, r.jobID, stageReview, 5, review)
}

func createJob(ctx context.Context, q sqlQueryer, jobID, corpusID, topic string) error {
	_, err := q.ExecContext(ctx, `INSERT INTO draft_job(id, corpus_id, topic, status, stage) VALUES(?,?,?,?,?)`,
		jobID, corpusID, topic, jobRunning, stageBrief)
	return err
}

func loadJob(ctx context.Context, q sqlQueryer, jobID string) (topic, status string, err error) {
	err = q.QueryRowContext(ctx, `SELECT topic, status FROM draft_job WHERE id = ?`, jobID).Scan(&topic, &status)
	if err == sql.ErrNoRows {
		return "", "", fmt.Errorf("draft job %v not found", jobID)
	}
	return topic, status, err
}

func updateJob(ctx context.Context, q sqlQueryer, jobID, status, stage string) error {
	_, err := q.ExecContext(ctx, `UPDATE draft_job SET status=?, stage=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`, status, stage, jobID)
	return err
}

func saveStage(ctx context.Context, q sqlQueryer, jobID, stage string, seq int, output any) error {
	data, err := json.Marshal(output)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `INSERT INTO draft_stage(job_id, stage, seq, status, output, updated_at)
VALUES(?,?,?,'done',?,CURRENT_TIMESTAMP)
ON CONFLICT(job_id, stage) DO UPDATE SET status='done', output=excluded.output, updated_at=CURRENT_TIMESTAMP`,
		jobID, stage, seq, string(data))
	return err
}

// loadStage reports whether a stage already completed, decoding its
// output into out when it did.
func loadStage(ctx context.Context, q sqlQueryer, jobID, stage string, out any) (bool, error) {
	var status string
	var output sql.NullString
	err := q.QueryRowContext(ctx, `SELECT status, output FROM draft_stage WHERE job_id = ? AND stage = ?`, jobID, stage).Scan(&status, &output)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if status != "done" || !output.Valid {
		return false, nil
	}
	if err := json.Unmarshal([]byte(output.String), out); err != nil {
		return false, fmt.Errorf("decode %v output: %w", stage, err)
	}
	return true, nil
}

type outlineHeading struct {
	level int
	title string
}

// outlineHeadings walks the goldmark AST and returns headings in
// document order.
func outlineHeadings(doc string) []outlineHeading {
	data := []byte(doc)
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(data))
	var out []outlineHeading
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok {
			continue
		}
		title := strings.TrimSpace(string(h.Text(data)))
		if title == "" {
			continue
		}
		out = append(out, outlineHeading{level: h.Level, title: title})
	}
	return out
}

// validateOutline parses a generated outline and drops headings nested
// deeper than maxOutlineDepth. When any heading is dropped the markdown
// is rebuilt from the surviving headings so the outline and its heading
// list stay in step.
func validateOutline(doc string) draftOutline {
	headings := outlineHeadings(doc)
	kept := make([]outlineHeading, 0, len(headings))
	for _, h := range headings {
		if h.level > maxOutlineDepth {
			continue
		}
		kept = append(kept, h)
	}
	outline := draftOutline{Markdown: doc}
	for _, h := range kept {
		outline.Headings = append(outline.Headings, h.title)
	}
	if len(kept) < len(headings) {
		var b strings.Builder
		for _, h := range kept {
			fmt.Fprintf(&b, "%s %s\n", strings.Repeat("#", h.level), h.title)
		}
		outline.Markdown = b.String()
	}
	return outline
}
