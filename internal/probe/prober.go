package probe

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrNotMusicXML is returned when the document root is not a MusicXML score.
var ErrNotMusicXML = errors.New("not a MusicXML score")

// Inspect opens path and summarizes its structure.
func Inspect(path string) (*Score, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("inspect %q: %w", path, err)
	}
	return s, nil
}

// ParseXML summarizes an in-memory document. Exported for testing without
// files on disk.
func ParseXML(data []byte) (*Score, error) {
	return Parse(bytes.NewReader(data))
}

// Parse reads a MusicXML document from r.
func Parse(r io.Reader) (*Score, error) {
	dec := xml.NewDecoder(r)
	p := parser{names: make(map[string]string), index: make(map[string]int)}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse MusicXML: %w", err)
		}
		if err := p.handle(tok); err != nil {
			return nil, err
		}
	}
	if p.score.Layout == "" {
		return nil, ErrNotMusicXML
	}
	for i := range p.score.Parts {
		p.score.Parts[i].Name = p.names[p.score.Parts[i].ID]
	}
	p.score.Title = strings.TrimSpace(p.title)
	if p.score.Title == "" {
		p.score.Title = strings.TrimSpace(p.movement)
	}
	return &p.score, nil
}

// parser tracks the element stack while streaming tokens.
type parser struct {
	score    Score
	stack    []string
	names    map[string]string // score-part id -> part-name
	index    map[string]int    // part id -> index in score.Parts
	scoreID  string            // current score-part id in part-list
	current  int               // current part index (partwise)
	title    string
	movement string
}

func (p *parser) handle(tok xml.Token) error {
	switch t := tok.(type) {
	case xml.StartElement:
		name := t.Name.Local
		depth := len(p.stack)
		if depth == 0 {
			switch name {
			case "score-partwise":
				p.score.Layout = Partwise
			case "score-timewise":
				p.score.Layout = Timewise
			default:
				return fmt.Errorf("%w: root element <%s>", ErrNotMusicXML, name)
			}
		}
		p.start(name, depth, t.Attr)
		p.stack = append(p.stack, name)
	case xml.EndElement:
		if len(p.stack) > 0 {
			p.stack = p.stack[:len(p.stack)-1]
		}
	case xml.CharData:
		p.text(string(t))
	}
	return nil
}

func (p *parser) start(name string, depth int, attrs []xml.Attr) {
	switch {
	case name == "score-part" && p.parent() == "part-list":
		p.scoreID = attr(attrs, "id")
	case p.score.Layout == Partwise && depth == 1 && name == "part":
		p.current = p.part(attr(attrs, "id"))
	case p.score.Layout == Partwise && depth == 2 && name == "measure" && p.parent() == "part":
		p.score.Parts[p.current].Measures++
	case p.score.Layout == Timewise && depth == 2 && name == "part" && p.parent() == "measure":
		i := p.part(attr(attrs, "id"))
		p.score.Parts[i].Measures++
	}
}

// part returns the index of the part with id, adding it on first sight.
func (p *parser) part(id string) int {
	if i, ok := p.index[id]; ok {
		return i
	}
	p.score.Parts = append(p.score.Parts, Part{ID: id})
	p.index[id] = len(p.score.Parts) - 1
	return len(p.score.Parts) - 1
}

func (p *parser) text(s string) {
	switch p.parent() {
	case "part-name":
		if p.scoreID != "" {
			p.names[p.scoreID] += s
		}
	case "work-title":
		p.title += s
	case "movement-title":
		p.movement += s
	}
}

func (p *parser) parent() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

func attr(attrs []xml.Attr, local string) string {
	for _, a := range attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
