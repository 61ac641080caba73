package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
)

const (
	DropReasonMalformed    = "malformed_entry"
	DropReasonEmptyClause  = "empty_clause_text"
	DropReasonUnknownLevel = "unknown_risk_level"

	maxRecoveryOpeners = 256
)

var (
	codeFencePattern     = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")
	trailingCommaPattern = regexp.MustCompile(`,\s*([\]}])`)

	// Keys under which models tend to wrap the finding array.
	findingWrapperKeys = []string{"findings", "analysis_results", "results", "clauses", "issues"}
)

type DroppedFinding struct {
	Position int
	Reason   string
}

type ParseResult struct {
	Findings []domain.Finding
	Dropped  []DroppedFinding
}

type rawFinding struct {
	ClauseText           string `json:"clause_text"`
	IssueDetected        string `json:"issue_detected"`
	Explanation          string `json:"explanation"`
	SuggestedAlternative string `json:"suggested_alternative"`
	RiskLevel            string `json:"risk_level"`
}

// ParseFindings recovers the finding list from one chunk's raw model output.
// The whole text is decoded strictly first; failing that, the largest
// balanced JSON fragment that decodes is used. It is a pure function of its
// input.
func ParseFindings(chunkIndex int, raw string) (ParseResult, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ParseResult{}, &domain.ParseError{ChunkIndex: chunkIndex, Err: errors.New("empty model response")}
	}

	if entries, ok := decodeFindingList(text); ok {
		return normalizeFindings(chunkIndex, entries), nil
	}
	for _, candidate := range recoveryCandidates(text) {
		if entries, ok := decodeFindingList(candidate); ok {
			return normalizeFindings(chunkIndex, entries), nil
		}
		if fixed := trailingCommaPattern.ReplaceAllString(candidate, "$1"); fixed != candidate {
			if entries, ok := decodeFindingList(fixed); ok {
				return normalizeFindings(chunkIndex, entries), nil
			}
		}
	}

	return ParseResult{}, &domain.ParseError{ChunkIndex: chunkIndex, Err: errors.New("no finding list in model response")}
}

// decodeFindingList accepts a bare array, an object wrapping an array under a
// known key, or a single finding object. A non-empty array must hold at least
// one object, so bracketed prose such as "[2]" is not a finding list.
func decodeFindingList(text string) ([]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace([]byte(text))
	if len(trimmed) == 0 {
		return nil, false
	}

	switch trimmed[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil || !holdsObjects(list) {
			return nil, false
		}
		return list, true
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, false
		}
		for _, key := range findingWrapperKeys {
			value, ok := obj[key]
			if !ok {
				continue
			}
			var list []json.RawMessage
			if err := json.Unmarshal(value, &list); err == nil && holdsObjects(list) {
				return list, true
			}
		}
		if _, ok := obj["clause_text"]; ok {
			return []json.RawMessage{trimmed}, true
		}
	}
	return nil, false
}

func holdsObjects(list []json.RawMessage) bool {
	if len(list) == 0 {
		return true
	}
	for _, entry := range list {
		if trimmed := bytes.TrimSpace(entry); len(trimmed) > 0 && trimmed[0] == '{' {
			return true
		}
	}
	return false
}

func normalizeFindings(chunkIndex int, entries []json.RawMessage) ParseResult {
	out := ParseResult{Findings: make([]domain.Finding, 0, len(entries))}
	for i, entry := range entries {
		var rf rawFinding
		if err := json.Unmarshal(entry, &rf); err != nil {
			out.Dropped = append(out.Dropped, DroppedFinding{Position: i, Reason: DropReasonMalformed})
			continue
		}
		clause := strings.TrimSpace(rf.ClauseText)
		if clause == "" {
			out.Dropped = append(out.Dropped, DroppedFinding{Position: i, Reason: DropReasonEmptyClause})
			continue
		}
		level, ok := domain.ParseRiskLevel(rf.RiskLevel)
		if !ok {
			out.Dropped = append(out.Dropped, DroppedFinding{Position: i, Reason: DropReasonUnknownLevel})
			continue
		}
		out.Findings = append(out.Findings, domain.Finding{
			ClauseText:           clause,
			IssueDetected:        strings.TrimSpace(rf.IssueDetected),
			RiskLevel:            level,
			Explanation:          strings.TrimSpace(rf.Explanation),
			SuggestedAlternative: strings.TrimSpace(rf.SuggestedAlternative),
			SourceChunkIndex:     chunkIndex,
		})
	}
	return out
}

// recoveryCandidates lists every fenced block body, in order, followed by
// every balanced bracket fragment of the whole text, longest first.
func recoveryCandidates(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, m := range codeFencePattern.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}

	var fragments []string
	openers := 0
	for i := 0; i < len(text) && openers < maxRecoveryOpeners; i++ {
		if text[i] != '[' && text[i] != '{' {
			continue
		}
		openers++
		if end := balancedEnd(text, i); end > 0 {
			fragments = append(fragments, text[i:end])
		}
	}
	sort.SliceStable(fragments, func(a, b int) bool {
		return len(fragments[a]) > len(fragments[b])
	})
	for _, f := range fragments {
		add(f)
	}
	return out
}

// balancedEnd returns the index just past the bracket that closes s[start],
// honoring JSON string literals, or -1.
func balancedEnd(s string, start int) int {
	stack := make([]byte, 0, 8)
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '[':
			stack = append(stack, ']')
		case '{':
			stack = append(stack, '}')
		case ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i + 1
			}
		}
	}
	return -1
}
