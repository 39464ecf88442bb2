// Package index implements the in-memory inverted index: a document
// registry, per-term posting lists and a per-document length cache.
// MemoryIndex is safe for concurrent use; writers take the lock per call,
// or per batch through Apply.
package index

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

type MemoryIndex struct {
	mu          sync.RWMutex
	index       map[string]PostingList
	docs        map[string]*Document
	docLengths  map[string]int
	totalTokens int64
	size        int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index:      make(map[string]PostingList),
		docs:       make(map[string]*Document),
		docLengths: make(map[string]int),
	}
}

// AddResult reports what AddDocument did with a document.
type AddResult int

const (
	Added AddResult = iota
	AddedEmpty
	SkippedDuplicate
)

// AddDocument indexes doc unless its ID is already registered.
func (m *MemoryIndex) AddDocument(doc Document) AddResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(doc)
}

// Writer is the locked view handed to Apply callbacks.
type Writer struct {
	m *MemoryIndex
}

// AddDocument indexes doc under the lock already held by Apply.
func (w Writer) AddDocument(doc Document) AddResult {
	return w.m.addLocked(doc)
}

// Reset discards everything under the lock already held by Apply.
func (w Writer) Reset() {
	w.m.resetLocked()
}

// Apply runs fn while holding the write lock, so a whole batch becomes
// visible to readers at once.
func (m *MemoryIndex) Apply(fn func(w Writer)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(Writer{m: m})
}

func (m *MemoryIndex) addLocked(doc Document) AddResult {
	if _, exists := m.docs[doc.ID]; exists {
		return SkippedDuplicate
	}
	tokens := tokenizer.Tokenize(doc.Content)

	stored := doc.clone()
	m.docs[doc.ID] = &stored
	m.docLengths[doc.ID] = len(tokens)
	m.totalTokens += int64(len(tokens))
	if len(tokens) == 0 {
		return AddedEmpty
	}

	counts := make(map[string]int)
	order := make([]string, 0, len(tokens))
	for _, term := range tokens {
		if _, seen := counts[term]; !seen {
			order = append(order, term)
		}
		counts[term]++
	}
	total := float64(len(tokens))
	for _, term := range order {
		m.index[term] = append(m.index[term], Posting{
			DocID: doc.ID,
			TF:    float64(counts[term]) / total,
		})
		m.size += int64(len(term) + len(doc.ID) + 24)
	}
	m.size += int64(len(doc.Content) + len(doc.ID) + len(doc.Filename))
	return Added
}

// Search returns a copy of the postings for an already-normalised term.
func (m *MemoryIndex) Search(term string) PostingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	postings, exists := m.index[term]
	if !exists {
		return nil
	}
	result := make(PostingList, len(postings))
	copy(result, postings)
	return result
}

// Document returns a copy of the registered document with the given ID.
func (m *MemoryIndex) Document(docID string) (Document, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Reader{m: m}.Document(docID)
}

// Contains reports whether docID is registered.
func (m *MemoryIndex) Contains(docID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.docs[docID]
	return ok
}

// DocLength returns the token count of a registered document. It panics
// for an unknown ID: every posting refers to a registered document.
func (m *MemoryIndex) DocLength(docID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.docLengthLocked(docID)
}

func (m *MemoryIndex) docLengthLocked(docID string) int {
	length, ok := m.docLengths[docID]
	if !ok {
		panic(fmt.Sprintf("index: posting refers to unregistered document %q", docID))
	}
	return length
}

// View runs fn under the read lock with a consistent reader.
func (m *MemoryIndex) View(fn func(r Reader)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(Reader{m: m})
}

// Reader is the read-locked view handed to View callbacks. It must not
// escape the callback.
type Reader struct {
	m *MemoryIndex
}

// Postings returns the live posting list for term; callers must not modify it.
func (r Reader) Postings(term string) PostingList {
	return r.m.index[term]
}

// DocLength returns the token count of a registered document.
func (r Reader) DocLength(docID string) int {
	return r.m.docLengthLocked(docID)
}

// Document returns a copy of the registered document with the given ID;
// edits to its metadata never reach the index.
func (r Reader) Document(docID string) (Document, bool) {
	doc, ok := r.m.docs[docID]
	if !ok {
		return Document{}, false
	}
	return doc.clone(), true
}

// Stats returns the corpus statistics.
func (r Reader) Stats() CorpusStats {
	return r.m.statsLocked()
}

func (m *MemoryIndex) Stats() CorpusStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statsLocked()
}

func (m *MemoryIndex) statsLocked() CorpusStats {
	return CorpusStats{
		TotalDocs:   len(m.docs),
		TotalTokens: m.totalTokens,
		Terms:       len(m.index),
	}
}

// Snapshot returns every term with a copy of its postings, sorted by term.
func (m *MemoryIndex) Snapshot() []TermEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0, len(m.index))
	for term, postings := range m.index {
		cp := make(PostingList, len(postings))
		copy(cp, postings)
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: cp,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// Size returns an approximate memory footprint in bytes.
func (m *MemoryIndex) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// Reset discards every document, posting and length in one step.
func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

func (m *MemoryIndex) resetLocked() {
	m.index = make(map[string]PostingList)
	m.docs = make(map[string]*Document)
	m.docLengths = make(map[string]int)
	m.totalTokens = 0
	m.size = 0
}
