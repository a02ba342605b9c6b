package safety

import (
	"strings"
	"testing"
)

func TestAssessQuestionLevels(t *testing.T) {
	f := New()
	cases := []struct {
		question string
		want     Level
	}{
		{"What are the traditional uses of triphala?", Allow},
		{"", Allow},
		{"What is the history of rasayana therapy?", Allow},
		{"What dosage of ashwagandha should I take?", Caution},
		{"How much triphala per day?", Caution},
		{"Can I take brahmi together with warfarin medication?", Caution},
		{"Is shatavari safe during pregnancy?", Caution},
		{"I have chest pain right now, what herb helps?", Refuse},
		{"What happens in an ashwagandha overdose?", Refuse},
		{"What dose of triphala for my baby?", Refuse},
		{"Herbs for someone who is suicidal?", Refuse},
	}
	for _, tc := range cases {
		got := f.AssessQuestion(tc.question)
		if got.Level != tc.want {
			t.Fatalf("AssessQuestion(%q) = %v, want %v (reasons: %v)", tc.question, got.Level, tc.want, got.Reasons)
		}
		if tc.want != Allow && len(got.Reasons) == 0 {
			t.Fatalf("AssessQuestion(%q) should report reasons", tc.question)
		}
	}
}

func TestRefuseWinsOverCaution(t *testing.T) {
	f := New()
	got := f.AssessQuestion("What dosage helps an overdose?")
	if got.Level != Refuse {
		t.Fatalf("refuse rules should take precedence, got %v", got.Level)
	}
}

func TestSanitizeAnswerStripsDosing(t *testing.T) {
	f := New()
	answer := "Triphala is described as a gentle rasayana [1]. Texts mention 3 grams at bedtime [1]. It supports elimination [2]."
	got := f.SanitizeAnswer(answer, Assessment{Level: Caution})
	if strings.Contains(got, "3 grams") {
		t.Fatalf("dosing sentence should be removed: %q", got)
	}
	if !strings.Contains(got, "gentle rasayana") || !strings.Contains(got, "supports elimination") {
		t.Fatalf("descriptive sentences should survive: %q", got)
	}
}

func TestSanitizeAnswerAllowPassesThrough(t *testing.T) {
	f := New()
	answer := "Take 5 ml twice daily."
	if got := f.SanitizeAnswer(answer, Assessment{Level: Allow}); got != answer {
		t.Fatalf("allowed answers must pass unchanged: %q", got)
	}
	if got := f.SanitizeAnswer("", Assessment{Level: Caution}); got != "" {
		t.Fatalf("empty answer should stay empty")
	}
}

func TestSanitizeAnswerPreservesLines(t *testing.T) {
	f := New()
	answer := "## Uses\nIt supports digestion [1].\nTake 2 tablets daily [1]."
	got := f.SanitizeAnswer(answer, Assessment{Level: Caution})
	if !strings.Contains(got, "## Uses") {
		t.Fatalf("headings should survive sanitization: %q", got)
	}
	if strings.Contains(got, "2 tablets") {
		t.Fatalf("dosing line should be removed: %q", got)
	}
}
