// Package identity defines the composite key a person is trained and
// recognized under: batch, department and student.
package identity

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Segment prefixes used in keys and on disk.
const (
	BatchPrefix      = "batch_"
	DepartmentPrefix = "department_"
	StudentPrefix    = "student_"
)

// ErrInvalidKey is returned by ParseKey for keys that are not batch/department/student triples.
var ErrInvalidKey = errors.New("invalid identity key")

// Unknown is the identity assigned to a label missing from the label map.
var Unknown = Identity{Batch: "Unknown", Department: "Unknown", Student: "Unknown"}

// Part is one human-readable component of an identity with its optional
// numeric database id (zero when unknown).
type Part struct {
	Name string
	ID   int64
}

// Identity holds the normalized tokens of a person. Tokens never contain
// '/' and only contain '-' as the separator of a trailing numeric id.
type Identity struct {
	Batch      string
	Department string
	Student    string
}

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// Sanitize turns free text into a filesystem and delimiter safe token: every
// run of characters that are not letters, digits or '_' collapses into '_'.
func Sanitize(text string) string {
	text = RemoveDiacritics(strings.TrimSpace(text))

	var b strings.Builder
	inRun := false
	for _, r := range text {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			inRun = false
			continue
		}
		if !inRun {
			b.WriteByte('_')
			inRun = true
		}
	}
	return b.String()
}

// Token returns the sanitized name of p, suffixed with "-<id>" when the id is known.
func (p Part) Token() string {
	token := Sanitize(p.Name)
	if p.ID > 0 {
		token += "-" + strconv.FormatInt(p.ID, 10)
	}
	return token
}

// New builds an identity from its three parts.
func New(batch, department, student Part) Identity {
	return Identity{
		Batch:      batch.Token(),
		Department: department.Token(),
		Student:    student.Token(),
	}
}

// FromTokens builds an identity from already normalized tokens, as stored in the ledger.
func FromTokens(batch, department, student string) Identity {
	return Identity{Batch: batch, Department: department, Student: student}
}

// Validate reports whether every token is usable as a path segment.
func (id Identity) Validate() error {
	checks := []struct{ name, token string }{
		{"batch", id.Batch},
		{"department", id.Department},
		{"student", id.Student},
	}
	for _, c := range checks {
		if c.token == "" || c.token == "." || c.token == ".." {
			return fmt.Errorf("%s name is empty", c.name)
		}
		if strings.ContainsAny(c.token, `/\`) {
			return fmt.Errorf("%s name contains a path separator", c.name)
		}
	}
	return nil
}

// Key returns the composite key "batch_<B>/department_<D>/student_<S>".
func (id Identity) Key() string {
	return BatchPrefix + id.Batch + "/" + DepartmentPrefix + id.Department + "/" + StudentPrefix + id.Student
}

// Dir returns the key as a relative filesystem path.
func (id Identity) Dir() string {
	return filepath.Join(BatchPrefix+id.Batch, DepartmentPrefix+id.Department, StudentPrefix+id.Student)
}

// String implements fmt.Stringer.
func (id Identity) String() string {
	return id.Key()
}

// IsUnknown reports whether id is the unrecognized sentinel.
func (id Identity) IsUnknown() bool {
	return id == Unknown
}

// StudentName returns the student token without its id suffix.
func (id Identity) StudentName() string {
	return stripID(id.Student)
}

// BatchName returns the batch token without its id suffix.
func (id Identity) BatchName() string {
	return stripID(id.Batch)
}

// DepartmentName returns the department token without its id suffix.
func (id Identity) DepartmentName() string {
	return stripID(id.Department)
}

// ParseKey inverts Key. Both '/' and the OS path separator are accepted.
func ParseKey(key string) (Identity, error) {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(key)), "/")
	if len(parts) != 3 {
		return Identity{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	batch, ok1 := strings.CutPrefix(parts[0], BatchPrefix)
	dept, ok2 := strings.CutPrefix(parts[1], DepartmentPrefix)
	student, ok3 := strings.CutPrefix(parts[2], StudentPrefix)
	if !ok1 || !ok2 || !ok3 {
		return Identity{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	id := FromTokens(batch, dept, student)
	if err := id.Validate(); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return id, nil
}

func stripID(token string) string {
	i := strings.LastIndexByte(token, '-')
	if i <= 0 {
		return token
	}
	if _, err := strconv.ParseInt(token[i+1:], 10, 64); err != nil {
		return token
	}
	return token[:i]
}
