package responder

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode"
)

// Document is one question/answer pair of the knowledge base.
type Document struct {
	Question string
	Answer   string
}

// Content is the text handed to the model as context.
func (d Document) Content() string {
	return "Question: " + d.Question + "\nAnswer: " + d.Answer
}

// KnowledgeBase retrieves documents by keyword overlap with the query.
type KnowledgeBase struct {
	docs   []Document
	tokens []map[string]struct{}
}

// NewKnowledgeBase indexes docs.
func NewKnowledgeBase(docs []Document) *KnowledgeBase {
	kb := &KnowledgeBase{docs: docs, tokens: make([]map[string]struct{}, len(docs))}
	for i, d := range docs {
		set := make(map[string]struct{})
		for _, t := range tokenize(d.Question + " " + d.Answer) {
			set[t] = struct{}{}
		}
		kb.tokens[i] = set
	}
	return kb
}

// LoadKnowledge reads a CSV file with "question" and "answer" columns.
func LoadKnowledge(path string) (*KnowledgeBase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open knowledge base: %w", err)
	}
	defer f.Close()
	return ReadKnowledge(f)
}

// ReadKnowledge parses question,answer CSV rows. Column order is taken from
// the header; extra columns are ignored.
func ReadKnowledge(r io.Reader) (*KnowledgeBase, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read knowledge header: %w", err)
	}
	qCol, aCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "question":
			qCol = i
		case "answer":
			aCol = i
		}
	}
	if qCol < 0 || aCol < 0 {
		return nil, errors.New("knowledge base needs question and answer columns")
	}

	var docs []Document
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read knowledge row: %w", err)
		}
		if qCol >= len(rec) || aCol >= len(rec) {
			continue
		}
		q, a := strings.TrimSpace(rec[qCol]), strings.TrimSpace(rec[aCol])
		if q == "" || a == "" {
			continue
		}
		docs = append(docs, Document{Question: q, Answer: a})
	}
	return NewKnowledgeBase(docs), nil
}

// Len returns the number of documents.
func (kb *KnowledgeBase) Len() int {
	return len(kb.docs)
}

// Retrieve returns up to k documents sharing the most distinct keywords
// with query. Documents sharing none are never returned; ties keep file
// order.
func (kb *KnowledgeBase) Retrieve(query string, k int) []Document {
	terms := make(map[string]struct{})
	for _, t := range tokenize(query) {
		terms[t] = struct{}{}
	}
	if len(terms) == 0 || k <= 0 {
		return nil
	}

	type hit struct {
		idx   int
		score int
	}
	var hits []hit
	for i, set := range kb.tokens {
		score := 0
		for t := range terms {
			if _, ok := set[t]; ok {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, hit{idx: i, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]Document, len(hits))
	for i, h := range hits {
		out[i] = kb.docs[h.idx]
	}
	return out
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "what": {}, "how": {}, "can": {},
	"you": {}, "your": {}, "with": {}, "about": {}, "this": {}, "that": {},
	"from": {}, "have": {}, "has": {}, "does": {}, "why": {}, "when": {},
	"who": {}, "which": {}, "tell": {}, "into": {}, "there": {}, "their": {},
	"was": {}, "were": {}, "will": {}, "should": {}, "could": {}, "would": {},
	"not": {}, "any": {}, "all": {}, "some": {}, "get": {}, "out": {}, "its": {},
}

// tokenize lower-cases s and splits it into words of three or more letters
// or digits, dropping common English words.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 3 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}
