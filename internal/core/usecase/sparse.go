package usecase

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/hukumnesia/lexqa/internal/core/domain"
)

const (
	bm25K1      = 1.5
	bm25B       = 0.75
	minTokenLen = 3
)

// indonesianStopwords excludes high-frequency Indonesian function words from
// both index and query tokenization.
var indonesianStopwords = map[string]struct{}{
	"yang": {}, "dan": {}, "atau": {}, "dengan": {}, "untuk": {},
	"dari": {}, "dalam": {}, "pada": {}, "adalah": {}, "akan": {},
	"oleh": {}, "sebagai": {}, "tidak": {}, "dapat": {}, "telah": {},
	"ini": {}, "itu": {}, "juga": {}, "karena": {}, "jika": {},
	"maka": {}, "serta": {}, "bahwa": {}, "tentang": {}, "terhadap": {},
	"setiap": {}, "antara": {}, "bagaimana": {}, "apakah": {}, "berapa": {},
	"kepada": {}, "secara": {}, "harus": {}, "saat": {}, "ketika": {},
	"merupakan": {}, "tersebut": {}, "sesuai": {}, "apa": {}, "bisa": {},
}

// tokenizeLegal lowercases, splits on non-alphanumerics, and drops stopwords
// and tokens shorter than minTokenLen.
func tokenizeLegal(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 24)
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		token := b.String()
		b.Reset()
		if len(token) < minTokenLen {
			return
		}
		if _, ok := indonesianStopwords[token]; ok {
			return
		}
		tokens = append(tokens, token)
	}

	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}

type sparseDoc struct {
	record   domain.CorpusRecord
	termFreq map[string]int
	tokenLen int
}

// SparseIndex is a BM25 inverted index over the corpus snapshot. Built once
// at startup and read-only afterwards.
type SparseIndex struct {
	docs      []sparseDoc
	postings  map[string][]int
	avgDocLen float64
}

// NewSparseIndex tokenizes every record's text and builds the posting lists.
func NewSparseIndex(records []domain.CorpusRecord) *SparseIndex {
	idx := &SparseIndex{
		docs:     make([]sparseDoc, 0, len(records)),
		postings: make(map[string][]int),
	}

	totalLen := 0
	for _, record := range records {
		tokens := tokenizeLegal(record.Text)
		doc := sparseDoc{
			record:   record,
			termFreq: make(map[string]int, len(tokens)),
			tokenLen: len(tokens),
		}
		for _, token := range tokens {
			doc.termFreq[token]++
		}
		docIdx := len(idx.docs)
		for token := range doc.termFreq {
			idx.postings[token] = append(idx.postings[token], docIdx)
		}
		idx.docs = append(idx.docs, doc)
		totalLen += len(tokens)
	}

	if len(idx.docs) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(idx.docs))
	}
	return idx
}

func (idx *SparseIndex) Size() int {
	return len(idx.docs)
}

// Search scores documents with BM25 and returns the topK by descending
// score. Scores are rank-comparable within this list only; fusion must use
// rank, not magnitude. Empty corpus or an all-stopword query returns nil.
func (idx *SparseIndex) Search(query string, topK int) []domain.SearchResult {
	if len(idx.docs) == 0 || topK <= 0 {
		return nil
	}
	queryTokens := tokenizeLegal(query)
	if len(queryTokens) == 0 {
		return nil
	}

	scores := make(map[int]float64)
	n := float64(len(idx.docs))
	for _, token := range queryTokens {
		posting := idx.postings[token]
		if len(posting) == 0 {
			continue
		}
		df := float64(len(posting))
		idf := math.Log(1.0 + (n-df+0.5)/(df+0.5))
		for _, docIdx := range posting {
			doc := idx.docs[docIdx]
			tf := float64(doc.termFreq[token])
			lenNorm := 1.0 - bm25B + bm25B*(float64(doc.tokenLen)/idx.avgDocLen)
			scores[docIdx] += idf * (tf * (bm25K1 + 1.0)) / (tf + bm25K1*lenNorm)
		}
	}
	if len(scores) == 0 {
		return nil
	}

	out := make([]domain.SearchResult, 0, len(scores))
	for docIdx, score := range scores {
		record := idx.docs[docIdx].record
		out = append(out, domain.SearchResult{
			ID:         record.ID,
			Text:       record.Text,
			Citation:   record.Citation,
			CitationID: record.CitationID,
			Score:      score,
			Metadata:   record.Metadata,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})

	if len(out) > topK {
		out = out[:topK]
	}
	return out
}
