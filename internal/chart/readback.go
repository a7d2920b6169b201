package chart

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrNoFigure is returned when an HTML document carries no figure model.
var ErrNoFigure = errors.New("document has no embedded figure")

// ReadHTML extracts the figure model from a document written by
// HTMLRenderer.
func ReadHTML(r io.Reader) (*Figure, error) {
	z := html.NewTokenizer(r)
	inFigure := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, fmt.Errorf("read html: %w", err)
			}
			return nil, ErrNoFigure

		case html.StartTagToken:
			tok := z.Token()
			inFigure = tok.DataAtom == atom.Script && attr(tok, "id") == FigureElementID

		case html.TextToken:
			if !inFigure {
				continue
			}
			var fig Figure
			if err := json.Unmarshal(z.Text(), &fig); err != nil {
				return nil, fmt.Errorf("decode figure: %w", err)
			}
			return &fig, nil

		case html.EndTagToken:
			inFigure = false
		}
	}
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
