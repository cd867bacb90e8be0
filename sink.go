package main

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/fatih/color"
	"github.com/xplshn/tracerr2"
)

const separator = "--------------------------------------"

// captureSink writes capture blocks to the console and, optionally, an append-only file.
// Each block goes out in a single Write so concurrent captures do not interleave lines.
type captureSink struct {
	console     io.Writer
	file        *os.File
	dumpRequest bool

	sepColor  *color.Color
	lexer     chroma.Lexer
	style     *chroma.Style
	formatter chroma.Formatter
}

func newCaptureSink(console io.Writer, cfg *Config) (*captureSink, error) {
	s := &captureSink{
		console:     console,
		dumpRequest: cfg.DumpRequest,
		sepColor:    color.New(color.FgHiBlack),
		lexer:       lexers.Get("http"),
		style:       styles.Get(cfg.Theme),
		formatter:   formatters.Get("terminal256"),
	}
	if s.style == nil {
		s.style = styles.Fallback
	}

	if cfg.CaptureFile != "" {
		f, err := os.OpenFile(cfg.CaptureFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, tracerr.Wrapf(err, "failed to open capture file %s", cfg.CaptureFile)
		}
		s.file = f
	}
	return s, nil
}

func (s *captureSink) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

// Write emits the capture block. Write errors are returned but never reach the client.
func (s *captureSink) Write(c *CapturedRequest) error {
	if _, err := s.console.Write(s.render(c, !color.NoColor)); err != nil {
		return tracerr.Wrapf(err, "failed to write capture to console")
	}
	if s.file != nil {
		if _, err := s.file.Write(s.render(c, false)); err != nil {
			return tracerr.Wrapf(err, "failed to append capture to %s", s.file.Name())
		}
	}
	return nil
}

func (s *captureSink) render(c *CapturedRequest, colored bool) []byte {
	sep := separator
	if colored {
		sep = s.sepColor.Sprint(separator)
	}

	var buf bytes.Buffer
	buf.WriteString(sep + "\n")
	buf.Write(c.RawBody)
	buf.WriteString("\n" + sep + "\n")
	buf.WriteString("content: " + c.Form.String() + "\n")
	buf.WriteString(sep + "\n")

	if s.dumpRequest {
		text := c.Reconstruct()
		if colored {
			text = s.highlight(text)
		}
		buf.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			buf.WriteString("\n")
		}
		buf.WriteString(sep + "\n")
	}
	return buf.Bytes()
}

// highlight falls back to the plain text when chroma cannot handle it.
func (s *captureSink) highlight(text string) string {
	if s.lexer == nil || s.formatter == nil {
		return text
	}
	iterator, err := s.lexer.Tokenise(nil, text)
	if err != nil {
		return text
	}
	var buf bytes.Buffer
	if err := s.formatter.Format(&buf, s.style, iterator); err != nil {
		return text
	}
	return buf.String()
}
