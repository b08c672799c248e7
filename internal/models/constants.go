package models

import "errors"

const (
	ChunkIDPrefix = "page_"
	PageMetadata  = "page"

	LangEnglish = "en"
	LangBangla  = "bn"

	SearchQuerySeparator = " | "
)

var (
	ErrFileNotFound        = errors.New("file not found")
	ErrNoChunks            = errors.New("no chunks found, run the extractor first")
	ErrInvalidChunk        = errors.New("invalid chunk")
	ErrDuplicateID         = errors.New("duplicate chunk id")
	ErrUnsupportedProvider = errors.New("unsupported embedding provider")
	ErrUnsupportedBackend  = errors.New("unsupported vector store backend")
)

// reply templates, keyed by language
var (
	NotFoundReply = map[string]string{
		LangEnglish: "Sorry, I couldn't find relevant information in the policy document. Could you rephrase your question?",
		LangBangla:  "দুঃখিত, নীতিমালার মধ্যে প্রাসঙ্গিক তথ্য খুঁজে পাইনি। প্রশ্নটা একটু ভেঙে বলবেন?",
	}

	HitsHeader = map[string]string{
		LangEnglish: "Here are the most relevant sections from the policy document:\n",
		LangBangla:  "নীতিমালার প্রাসঙ্গিক অংশগুলো নিচে দেওয়া হলো:\n",
	}

	// HitTemplate is formatted with the page number and the chunk text
	HitTemplate = map[string]string{
		LangEnglish: "[Page %d] %s",
		LangBangla:  "[পৃষ্ঠা %d] %s",
	}

	HitSeparator = "\n\n"
)
