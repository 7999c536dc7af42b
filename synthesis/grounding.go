package synthesis

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/poiesic/merchantdesk/core"
)

// NarrowDownThreshold is the record count above which the grounding block
// lists names and links only.
const NarrowDownThreshold = 3

const (
	fullModeHeader   = "Reference material (cite the link of every source you use):"
	narrowModeHeader = "Too many matching documents to summarize. Matching documents:"

	narrowDownInstruction = "Do not summarize these documents. List their names with links and ask the user to narrow down the question, for example by naming the processor, product or merchant type they mean."

	// snippet lines are indented so they never parse as entry lines
	contentIndent = "    "
)

var (
	entryLineRE = regexp.MustCompile(`^\[(\d+)\] (.*)$`)
	fieldRE     = regexp.MustCompile(`(\w+)=("(?:[^"\\]|\\.)*")`)
)

// Citation maps one grounding entry back to its source.
type Citation struct {
	Index    int
	SourceID string
	Name     string
	Link     string
}

// NarrowDown reports whether evidence is too large to ground in full.
func NarrowDown(evidence []core.Evidence) bool {
	return len(evidence) > NarrowDownThreshold
}

// FormatGrounding renders evidence as the grounding block of the system prompt.
// Every entry line carries name, source and link fields; ParseCitations
// recovers them exactly.
func FormatGrounding(evidence []core.Evidence) string {
	if len(evidence) == 0 {
		return ""
	}

	var b strings.Builder
	narrow := NarrowDown(evidence)
	if narrow {
		b.WriteString(narrowModeHeader)
	} else {
		b.WriteString(fullModeHeader)
	}
	b.WriteString("\n")

	for i, e := range evidence {
		fmt.Fprintf(&b, "[%d] name=%s source=%s link=%s",
			i+1, strconv.Quote(e.Metadata.Name), strconv.Quote(e.SourceID), strconv.Quote(e.Link()))
		if narrow {
			b.WriteString("\n")
			continue
		}
		fmt.Fprintf(&b, " kind=%s score=%s\n", strconv.Quote(string(e.Kind)), strconv.Quote(fmt.Sprintf("%.2f", e.Score)))
		for _, line := range strings.Split(strings.TrimSpace(e.Content), "\n") {
			b.WriteString(contentIndent)
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	if narrow {
		b.WriteString("\n")
		b.WriteString(narrowDownInstruction)
		b.WriteString("\n")
	}
	return b.String()
}

// ParseCitations extracts the entries of a grounding block.
// Lines that are not entry lines are ignored.
func ParseCitations(block string) []Citation {
	var citations []Citation
	for _, line := range strings.Split(block, "\n") {
		m := entryLineRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		index, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		c := Citation{Index: index}
		for _, field := range fieldRE.FindAllStringSubmatch(m[2], -1) {
			value, err := strconv.Unquote(field[2])
			if err != nil {
				continue
			}
			switch field[1] {
			case "name":
				c.Name = value
			case "source":
				c.SourceID = value
			case "link":
				c.Link = value
			}
		}
		citations = append(citations, c)
	}
	return citations
}
