package media

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultOutputDirectory is where outputs go when no explicit path is given
const DefaultOutputDirectory = "output"

// EnhancedSuffix is appended to the input stem for default output names
const EnhancedSuffix = "_enhanced"

// DefaultOutputPath returns <outputDir>/<stem>_enhanced<ext> for inputPath
func DefaultOutputPath(inputPath, outputDir string) string {
	if outputDir == "" {
		outputDir = DefaultOutputDirectory
	}
	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(outputDir, stem+EnhancedSuffix+ext)
}

// SamePath reports whether two paths refer to the same location after
// cleaning and making them absolute
func SamePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// OutputClaims tracks output paths claimed by inputs within one batch and
// hands out " - dupN" variants when two inputs map to the same output.
// Paths reserved with Reserve are never handed out.
// Not safe for concurrent use; batches run sequentially.
type OutputClaims struct {
	owners   map[string]string // absolute output path -> input path that owns it
	reserved map[string]bool   // absolute paths that must not be written
	counters map[string]int    // requested output path -> next dup counter
}

// NewOutputClaims creates an empty claim set
func NewOutputClaims() *OutputClaims {
	return &OutputClaims{
		owners:   make(map[string]string),
		reserved: make(map[string]bool),
		counters: make(map[string]int),
	}
}

// Reserve marks path as off limits, typically because it is a batch input
func (c *OutputClaims) Reserve(path string) {
	c.reserved[claimKey(path)] = true
}

// Claim returns the output path for input, resolving collisions with
// outputs already claimed by other inputs and with reserved paths
func (c *OutputClaims) Claim(input, requested string) string {
	if c.available(input, requested) {
		c.owners[claimKey(requested)] = input
		return requested
	}

	dir := filepath.Dir(requested)
	base := filepath.Base(requested)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	counter := c.counters[requested]
	if counter == 0 {
		counter = 1
	}

	for {
		candidate := filepath.Join(dir, fmt.Sprintf("%s - dup%d%s", stem, counter, ext))
		if c.available(input, candidate) {
			c.counters[requested] = counter + 1
			c.owners[claimKey(candidate)] = input
			return candidate
		}
		counter++
	}
}

func (c *OutputClaims) available(input, path string) bool {
	key := claimKey(path)
	if c.reserved[key] {
		return false
	}
	owner, exists := c.owners[key]
	return !exists || owner == input
}

func claimKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
