package services

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/blobgate/internal/common"
)

const (
	maxHintLength = 128
	defaultHint   = "object"
)

// discriminatorPattern matches what KeyDeriver puts in front of the hint.
var discriminatorPattern = regexp.MustCompile(`^\d+-\d+-[0-9a-f]{6}-`)

// KeyDeriver builds object keys of the form
// <email>/<unix millis>-<sequence>-<random>-<hint>. The sequence is shared by
// all callers of one deriver, so keys never collide inside a process even
// within the same millisecond; the random part covers several processes.
type KeyDeriver struct {
	seq atomic.Uint64
	now func() time.Time
}

func NewKeyDeriver() *KeyDeriver {
	return &KeyDeriver{now: time.Now}
}

func (d *KeyDeriver) Derive(email, hint string) (string, error) {
	if err := validateEmail(email); err != nil {
		return "", err
	}

	random, err := common.MakeRandHexString(3)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	return fmt.Sprintf("%s/%d-%d-%s-%s", email, d.now().UnixMilli(), d.seq.Add(1), random, SanitizeHint(hint)), nil
}

// SanitizeHint reduces a client supplied name to a single safe path element:
// directories are dropped, anything outside [A-Za-z0-9._-] becomes '_', and
// leading dots are removed.
func SanitizeHint(hint string) string {
	if i := strings.LastIndexAny(hint, `/\`); i >= 0 {
		hint = hint[i+1:]
	}

	var b strings.Builder
	for _, r := range hint {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	s := b.String()
	if len(s) > maxHintLength {
		s = s[len(s)-maxHintLength:]
	}
	s = strings.TrimLeft(s, ".")
	if s == "" {
		return defaultHint
	}
	return s
}

// OutputName turns a stored file name into the hint for its transcoded copy:
// the discriminator is dropped and the extension replaced with ext.
func OutputName(sourceFilename, ext string) string {
	base := discriminatorPattern.ReplaceAllString(path.Base(sourceFilename), "")
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" {
		base = defaultHint
	}
	return base + ext
}
