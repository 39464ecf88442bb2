package analysis

// stopWords is the analysis stop list. It differs from the tokenizer's list:
// it also filters frequent content words and document-structure words.
var stopWords = map[string]struct{}{
	"the": {}, "be": {}, "to": {}, "of": {}, "and": {}, "a": {}, "in": {},
	"that": {}, "have": {}, "i": {}, "it": {}, "for": {}, "not": {}, "on": {},
	"with": {}, "he": {}, "as": {}, "you": {}, "do": {}, "at": {}, "this": {},
	"but": {}, "his": {}, "by": {}, "from": {}, "they": {}, "we": {}, "say": {},
	"her": {}, "she": {}, "or": {}, "an": {}, "will": {}, "my": {}, "one": {},
	"all": {}, "would": {}, "there": {}, "their": {}, "what": {}, "so": {},
	"up": {}, "out": {}, "if": {}, "about": {}, "who": {}, "get": {},
	"which": {}, "go": {}, "me": {}, "when": {}, "make": {}, "can": {},
	"like": {}, "time": {}, "no": {}, "just": {}, "him": {}, "know": {},
	"take": {}, "people": {}, "into": {}, "year": {}, "your": {}, "good": {},
	"some": {}, "could": {}, "them": {}, "see": {}, "other": {}, "than": {},
	"then": {}, "now": {}, "look": {}, "only": {}, "come": {}, "its": {},
	"over": {}, "think": {}, "also": {}, "back": {}, "after": {}, "use": {},
	"two": {}, "how": {}, "our": {}, "work": {}, "first": {}, "well": {},
	"way": {}, "even": {}, "new": {}, "want": {}, "because": {}, "any": {},
	"these": {}, "give": {}, "day": {}, "most": {}, "us": {}, "is": {},
	"are": {}, "was": {}, "were": {}, "has": {}, "had": {}, "been": {},
	"introduction": {}, "conclusion": {}, "chapter": {}, "page": {}, "fig": {},
	"figure": {}, "table": {},
}

func isStopWord(lower string) bool {
	_, ok := stopWords[lower]
	return ok
}
