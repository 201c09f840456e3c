package perturb

import "time"

// Record describes one applied operator, append-only. Records feed
// diagnostics and the post-attack summary of which operator categories
// contributed; they are never mutated after creation.
type Record struct {
	Operation string   // operator category, e.g. "add_field", "merge_classes"
	Target    string   // primary identifier the operator acted on
	Before    string   // textual state before the mutation
	After     string   // textual state after the mutation
	Affected  []string // identifiers touched besides the target
	At        time.Time
}

// Log collects modification records across an attack.
type Log struct {
	records []Record
}

// Append adds a record, stamping it if the caller did not.
func (l *Log) Append(r Record) {
	if r.At.IsZero() {
		r.At = time.Now()
	}
	l.records = append(l.records, r)
}

// Records returns a copy of the accumulated records.
func (l *Log) Records() []Record {
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records.
func (l *Log) Len() int {
	return len(l.records)
}

// CountByOperation tallies records per operator category.
func (l *Log) CountByOperation() map[string]int {
	out := map[string]int{}
	for _, r := range l.records {
		out[r.Operation]++
	}
	return out
}
