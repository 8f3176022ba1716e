package lang

import (
	"bufio"
	"bytes"
	"regexp"

	"github.com/pders01/repolens/internal/models"
)

// patternExtractor scans for common definition idioms (keyword followed by an
// identifier at statement start) in languages without a bundled grammar.
type patternExtractor struct{}

type linePattern struct {
	kind models.DeclarationKind
	re   *regexp.Regexp
}

var fallbackPatterns = []linePattern{
	{models.KindClass, regexp.MustCompile(`^\s*(?:pub(?:\([a-z]+\))?\s+|public\s+|private\s+|protected\s+|abstract\s+|final\s+|sealed\s+|open\s+|case\s+)*(?:class|struct|interface|trait|enum|object)\s+([A-Za-z_][A-Za-z0-9_]*)`)},
	{models.KindFunction, regexp.MustCompile(`^\s*(?:pub(?:\([a-z]+\))?\s+|public\s+|private\s+|protected\s+|static\s+|async\s+|override\s+|virtual\s+|inline\s+)*(?:fn|fun|func|def|function|sub)\s+([A-Za-z_][A-Za-z0-9_!?]*)`)},
	{models.KindModule, regexp.MustCompile(`^\s*(?:module|namespace|package)\s+([A-Za-z_][A-Za-z0-9_.:]*)`)},
	{models.KindVariable, regexp.MustCompile(`^(?:let\s+mut\s+|let\s+|const\s+|val\s+|var\s+|static\s+)([A-Za-z_][A-Za-z0-9_]*)\s*[:=]`)},
}

// cFuncRe matches C-family definitions like "int main(int argc, ...)" where
// no definition keyword exists. Requires an opening paren on the same line.
var cFuncRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_*\s]*\s[*]?([A-Za-z_][A-Za-z0-9_]*)\s*\([^;]*$`)

var cKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true,
	"return": true, "sizeof": true, "else": true, "do": true,
}

func (patternExtractor) DetectDeclarations(source []byte) ([]models.Declaration, error) {
	var decls []models.Declaration

	scanner := bufio.NewScanner(bytes.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		matched := false
		for _, p := range fallbackPatterns {
			if m := p.re.FindStringSubmatch(line); m != nil {
				decls = append(decls, models.Declaration{
					Kind: p.kind,
					Name: m[1],
					Line: lineNo,
				})
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		if m := cFuncRe.FindStringSubmatch(line); m != nil && !cKeywords[m[1]] {
			decls = append(decls, models.Declaration{
				Kind: models.KindFunction,
				Name: m[1],
				Line: lineNo,
			})
		}
	}

	// Scanner errors (oversized lines) degrade to whatever was collected.
	return decls, nil
}
