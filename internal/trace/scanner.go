package trace

import (
	"bufio"
	"io"
	"regexp"
	"strconv"

	"github.com/google/uuid"
)

const maxLineSize = 1024 * 1024

// Typical xperf output looks like:
//
//	"[RSDS] PdbSig: {0e7712be-af06-4421-884b-496f833c8ec1}; Age: 33; Pdb: D:\src\out\Release\chrome.dll.pdb"
//
// The age is printed in decimal.
var pdbSigRe = regexp.MustCompile(`^"\[RSDS\] PdbSig: {(.*-.*-.*-.*-.*)}; Age: (.*); Pdb: (.*)"`)

// ParseLine extracts a SymbolRecord from one line of xperf -dbgid output.
// Lines that do not reference a known module, or reference one without
// a signature, yield false.
func ParseLine(line string) (SymbolRecord, bool) {
	mod, ok := MatchModule(line)
	if !ok {
		return SymbolRecord{}, false
	}
	m := pdbSigRe.FindStringSubmatch(line)
	if m == nil {
		return SymbolRecord{}, false
	}
	guid, err := uuid.Parse(m[1])
	if err != nil {
		return SymbolRecord{}, false
	}
	age, err := strconv.ParseUint(m[2], 10, 32)
	if err != nil {
		return SymbolRecord{}, false
	}
	return SymbolRecord{
		GUID:    guid,
		Age:     uint32(age),
		PDBPath: m[3],
		Module:  mod,
	}, true
}

// Scan reads xperf output line by line and returns every symbol record in
// order of appearance. Duplicates are kept.
func Scan(r io.Reader) ([]SymbolRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var records []SymbolRecord
	for scanner.Scan() {
		if rec, ok := ParseLine(scanner.Text()); ok {
			records = append(records, rec)
		}
	}
	return records, scanner.Err()
}
