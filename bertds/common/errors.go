package common

import (
	"errors"
	"fmt"
)

// Error categories shared by every stage of a dataset build
var (
	// ErrConfiguration covers invalid options, bad slice bounds and empty corpora.
	ErrConfiguration = errors.New("configuration error")
	// ErrData covers corpora too small to satisfy sampling constraints.
	ErrData = errors.New("data error")
	// ErrVocabulary covers misuse of the vocabulary lifecycle.
	ErrVocabulary = errors.New("vocabulary error")
	// ErrMalformedSentence marks a sentence the tokenizer could not handle.
	ErrMalformedSentence = errors.New("malformed sentence")
	// ErrIndexOutOfRange is returned by indexed reads past the collection size.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// ConfigError wraps ErrConfiguration with the offending field and a detail message.
func ConfigError(field string, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %s", ErrConfiguration, field, fmt.Sprintf(format, args...))
}

// VocabError wraps ErrVocabulary with the operation that was attempted.
func VocabError(op string, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %s", ErrVocabulary, op, fmt.Sprintf(format, args...))
}

// DataError reports a corpus that cannot produce the requested examples.
// It carries the counts needed to diagnose the failure.
type DataError struct {
	Op        string
	Reason    string
	Documents int
	Sentences int
	Attempts  int
}

func (e *DataError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s (documents=%d, sentences=%d", ErrData, e.Op, e.Reason, e.Documents, e.Sentences)
	if e.Attempts > 0 {
		msg += fmt.Sprintf(", attempts=%d", e.Attempts)
	}
	return msg + ")"
}

func (e *DataError) Unwrap() error { return ErrData }

// WrapError wraps an error with additional context
func WrapError(err error, message string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	context := fmt.Sprintf(message, args...)
	return fmt.Errorf("%s: %w", context, err)
}
