package usecase

import (
	"strings"
	"testing"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
)

func TestBuildChunkRequestEmbedsTextAndSchema(t *testing.T) {
	chunk := domain.Chunk{Index: 1, Text: "The Company may terminate without notice."}
	req := BuildChunkRequest(chunk, 3)

	if !strings.Contains(req.User, chunk.Text) {
		t.Fatalf("expected chunk text in prompt: %s", req.User)
	}
	for _, field := range []string{"clause_text", "issue_detected", "explanation", "suggested_alternative", "risk_level"} {
		if !strings.Contains(req.User, field) {
			t.Fatalf("expected schema field %q in prompt", field)
		}
	}
	if !strings.Contains(req.User, "part 2 of 3") {
		t.Fatalf("expected position marker in prompt: %s", req.User)
	}
	if !strings.Contains(req.System, "non-compete") || req.ChunkIndex != 1 {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestBuildChunkRequestSingleChunkOmitsPosition(t *testing.T) {
	req := BuildChunkRequest(domain.Chunk{Index: 0, Text: "x"}, 1)
	if strings.Contains(req.User, "part 1 of 1") {
		t.Fatalf("single chunk prompt should not mention parts")
	}
	if again := BuildChunkRequest(domain.Chunk{Index: 0, Text: "x"}, 1); again != req {
		t.Fatalf("expected deterministic prompt")
	}
}
