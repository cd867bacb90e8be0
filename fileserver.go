package main

import (
	"bytes"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmdhtml "github.com/yuin/goldmark/renderer/html"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		gmdhtml.WithHardWraps(),
		gmdhtml.WithXHTML(),
	),
)

// fileServer serves regular files below root. Every failure is reported as 404.
type fileServer struct {
	root           string
	renderMarkdown bool
	logger         *slog.Logger
}

func newFileServer(root string, renderMarkdown bool, logger *slog.Logger) *fileServer {
	return &fileServer{root: root, renderMarkdown: renderMarkdown, logger: logger}
}

func (s *fileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/")
	s.logger.Info("serving file", "path", name, "root", s.root)

	f, info, err := s.open(name)
	if err != nil {
		s.logger.Debug("file not served", "path", name, "error", err)
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	if s.renderMarkdown && isMarkdown(name) && r.URL.Query().Get("render") == "1" {
		s.serveMarkdown(w, r, f, name)
		return
	}

	ctype := mime.TypeByExtension(filepath.Ext(name))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// open resolves name inside root. Names escaping root, directories and anything
// that is not a regular file are rejected.
func (s *fileServer) open(name string) (*os.File, os.FileInfo, error) {
	if name == "" {
		return nil, nil, os.ErrNotExist
	}
	f, err := os.OpenInRoot(s.root, filepath.FromSlash(name))
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, os.ErrNotExist
	}
	return f, info, nil
}

func (s *fileServer) serveMarkdown(w http.ResponseWriter, r *http.Request, f io.Reader, name string) {
	src, err := io.ReadAll(f)
	if err != nil {
		s.logger.Error("failed to read markdown", "path", name, "error", err)
		http.NotFound(w, r)
		return
	}
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		s.logger.Error("failed to render markdown", "path", name, "error", err)
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func isMarkdown(name string) bool {
	return strings.HasSuffix(name, ".md") || strings.HasSuffix(name, ".markdown")
}
