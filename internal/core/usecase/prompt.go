package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
)

const analysisSystemPrompt = `You are an experienced contract lawyer reviewing agreements on behalf of the weaker party.
Identify clauses that are unfair, one-sided or legally risky. Pay particular attention to:
1. Unilateral termination rights
2. Overly broad non-compete or non-solicitation restrictions
3. Dispute resolution terms biased towards one party
4. Unreasonable limitations or exclusions of liability
5. Unfair payment terms
6. Intellectual property overreach
7. Excessive penalties or liquidated damages
Answer with JSON only. Do not add commentary outside the JSON.`

const findingSchema = `[
  {
    "clause_text": "exact text of the problematic clause",
    "issue_detected": "short name of the issue",
    "explanation": "why this clause is risky for the reviewing party",
    "suggested_alternative": "a fairer rewrite of the clause",
    "risk_level": "high" | "medium" | "low"
  }
]`

// BuildChunkRequest renders the model request for one chunk. The response
// schema is restated on every call so each request stands alone.
func BuildChunkRequest(chunk domain.Chunk, totalChunks int) domain.ModelRequest {
	var b strings.Builder
	b.WriteString("Analyze the following contract text for risky clauses.\n")
	if totalChunks > 1 {
		fmt.Fprintf(&b, "This is part %d of %d of the contract. Analyze complete clauses only and ignore sentences cut off at the edges.\n", chunk.Index+1, totalChunks)
	}
	b.WriteString("\nReturn a JSON array in exactly this format:\n")
	b.WriteString(findingSchema)
	b.WriteString("\nrisk_level must be one of \"high\", \"medium\" or \"low\". ")
	b.WriteString("clause_text must quote the contract verbatim. ")
	b.WriteString("If no problematic clauses are found, return [].\n\n")
	b.WriteString("Contract text:\n<<<\n")
	b.WriteString(chunk.Text)
	b.WriteString("\n>>>")

	return domain.ModelRequest{
		System:     analysisSystemPrompt,
		User:       b.String(),
		ChunkIndex: chunk.Index,
	}
}

// probeRequest is a minimal round trip used to verify the backend is reachable.
func probeRequest() domain.ModelRequest {
	return domain.ModelRequest{
		System: "You are a health check. Reply with the single word OK.",
		User:   "ping",
	}
}
