// Package validation checks a structured extraction before persistence.
//
// With no reference set (first extraction of a document) it checks
// structural well-formedness only. With a reference set (reprocessing) it
// compares topic identities and fails on any drift, reporting exactly what
// was added and what went missing.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/editalhub/edital-api/internal/extraction"
)

// TopicKey is the identity of a topic for consistency purposes.
type TopicKey struct {
	ExamModule string
	Subject    string
	Topic      string
}

func (k TopicKey) String() string {
	return fmt.Sprintf("%s / %s / %s", k.ExamModule, k.Subject, k.Topic)
}

// StructuralError marks an extraction that is malformed at the structural
// level: empty, missing compositions, or carrying duplicate topics. It is
// classified like a schema failure (retryable).
type StructuralError struct {
	error
}

func NewStructuralError(format string, args ...interface{}) *StructuralError {
	return &StructuralError{fmt.Errorf(format, args...)}
}

// ConsistencyError reports drift between the candidate topic set and the
// reference set. It is permanent: retrying an extraction the provider can
// plausibly reproduce identically only burns the retry budget.
type ConsistencyError struct {
	Missing []TopicKey
	Added   []TopicKey
}

func (e *ConsistencyError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing topics: [%s]", joinKeys(e.Missing)))
	}
	if len(e.Added) > 0 {
		parts = append(parts, fmt.Sprintf("added topics: [%s]", joinKeys(e.Added)))
	}
	return "extracted topics diverge from reference: " + strings.Join(parts, "; ")
}

// Keys flattens an extraction into its topic identity set, preserving
// first-occurrence order and dropping duplicates.
func Keys(e *extraction.Extraction) []TopicKey {
	seen := make(map[TopicKey]struct{})
	var keys []TopicKey
	for _, role := range e.Roles {
		for _, t := range role.Topics {
			k := TopicKey{ExamModule: t.ExamModule, Subject: t.Subject, Topic: t.Topic}
			if _, found := seen[k]; found {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys
}

// Validate is a pure function of its inputs. reference may be nil for a
// first-ever extraction.
func Validate(candidate *extraction.Extraction, reference []TopicKey) error {
	if err := validateStructure(candidate); err != nil {
		return err
	}
	if reference == nil {
		return nil
	}
	return compare(Keys(candidate), reference)
}

func validateStructure(candidate *extraction.Extraction) error {
	if len(candidate.Roles) == 0 {
		return NewStructuralError("extraction contains no roles")
	}

	seen := make(map[TopicKey]struct{})
	topicCount := 0
	for _, role := range candidate.Roles {
		if role.JobTitle == "" {
			return NewStructuralError("extraction contains a role without a job title")
		}
		if len(role.Compositions) == 0 {
			return NewStructuralError("role %q has no exam composition", role.JobTitle)
		}
		for _, t := range role.Topics {
			topicCount++
			k := TopicKey{ExamModule: t.ExamModule, Subject: t.Subject, Topic: t.Topic}
			if _, found := seen[k]; found {
				return NewStructuralError("duplicate topic %q", k)
			}
			seen[k] = struct{}{}
		}
	}

	if topicCount == 0 {
		return NewStructuralError("extraction contains no topics")
	}
	return nil
}

func compare(candidate, reference []TopicKey) error {
	candidateSet := toSet(candidate)
	referenceSet := toSet(reference)

	var missing, added []TopicKey
	for k := range referenceSet {
		if _, found := candidateSet[k]; !found {
			missing = append(missing, k)
		}
	}
	for k := range candidateSet {
		if _, found := referenceSet[k]; !found {
			added = append(added, k)
		}
	}

	if len(missing) == 0 && len(added) == 0 {
		return nil
	}

	sortKeys(missing)
	sortKeys(added)
	return &ConsistencyError{Missing: missing, Added: added}
}

func toSet(keys []TopicKey) map[TopicKey]struct{} {
	set := make(map[TopicKey]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

func sortKeys(keys []TopicKey) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
}

func joinKeys(keys []TopicKey) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k.String())
	}
	return strings.Join(parts, ", ")
}
