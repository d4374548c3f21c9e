package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"slices"

	"github.com/tracelight/tracelight/internal/trace/domain"
	"github.com/tracelight/tracelight/internal/trace/service"
	"github.com/tracelight/tracelight/internal/trace/store"
	"github.com/tracelight/tracelight/pkg/slogx"
	"github.com/tracelight/tracelight/pkg/tracesdk"
)

// PreviewHandler serves GET /open/document/preview/{document_id}. The token
// query parameter carries the single-use grant; no bearer token is required,
// the grant itself is the credential.
type PreviewHandler struct {
	PreviewService *service.PreviewService
	Store          store.Store
}

func (h *PreviewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	documentID := r.PathValue("document_id")
	token := r.URL.Query().Get("token")
	if documentID == "" || token == "" {
		tracesdk.ErrInvalidRequest.WithDetail("document id and token are required").WriteError(w)
		return
	}

	grant, err := h.PreviewService.Redeem(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPreviewExpired):
			tracesdk.NewAPIError(http.StatusGone, "preview_expired", "the preview link has expired").WriteError(w)
		case errors.Is(err, service.ErrPreviewAlreadyUsed):
			tracesdk.NewAPIError(http.StatusGone, "preview_already_used", "the preview link has already been opened").WriteError(w)
		case errors.Is(err, service.ErrPreviewNotFound):
			tracesdk.ErrDocumentNotFound.WriteError(w)
		default:
			log.Error("preview redeem failed", "err", err)
			tracesdk.ErrInternalError.WriteError(w)
		}
		return
	}

	// The grant only opens the document it was minted for.
	if grant.DocumentID != documentID {
		tracesdk.ErrDocumentNotFound.WriteError(w)
		return
	}

	doc, err := h.Store.Documents().GetDocumentByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			tracesdk.ErrDocumentNotFound.WriteError(w)
			return
		}
		log.Error("preview document load failed", "err", err)
		tracesdk.ErrInternalError.WriteError(w)
		return
	}

	// The signed grant is the authoritative locator. The highlight query
	// parameter exists for external renderers; it is only consulted when the
	// grant carries no spans of its own.
	highlights := grant.Highlights
	if len(highlights) == 0 {
		highlights = decodeHighlightLocator(r.URL.Query().Get("highlight"))
	}

	page := previewPage{
		DocumentName: doc.Name,
		Segments:     buildSegments(doc.Content, highlights),
	}
	for _, seg := range page.Segments {
		if seg.Highlight {
			page.HighlightCount++
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := previewTemplate.Execute(w, page); err != nil {
		log.Error("preview render failed", "err", err)
	}
}

// encodeHighlightLocator packs spans into the URL-safe base64 JSON form the
// preview URL carries alongside the token.
func encodeHighlightLocator(spans []domain.Span) (string, error) {
	raw, err := json.Marshal(spans)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// decodeHighlightLocator is lenient: a missing or malformed locator renders
// the document without highlights rather than failing the request.
func decodeHighlightLocator(encoded string) []domain.Span {
	if encoded == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil
	}
	var spans []domain.Span
	if err := json.Unmarshal(raw, &spans); err != nil {
		return nil
	}
	return spans
}

type previewPage struct {
	DocumentName   string
	Segments       []previewSegment
	HighlightCount int
}

type previewSegment struct {
	Text      string
	Highlight bool
}

// buildSegments splits the document content into plain and highlighted runs.
// Span offsets are rune offsets; overlapping or out-of-range spans are clipped
// rather than rejected so a slightly stale grant still renders.
func buildSegments(content string, highlights []domain.Span) []previewSegment {
	runes := []rune(content)

	spans := slices.Clone(highlights)
	slices.SortFunc(spans, func(a, b domain.Span) int { return a.Offset - b.Offset })

	segments := make([]previewSegment, 0, 2*len(spans)+1)
	cursor := 0
	for _, sp := range spans {
		start := max(sp.Offset, cursor)
		end := min(sp.Offset+sp.Length, len(runes))
		if start >= end {
			continue
		}
		if start > cursor {
			segments = append(segments, previewSegment{Text: string(runes[cursor:start])})
		}
		segments = append(segments, previewSegment{Text: string(runes[start:end]), Highlight: true})
		cursor = end
	}
	if cursor < len(runes) {
		segments = append(segments, previewSegment{Text: string(runes[cursor:])})
	}
	return segments
}

// previewTemplate renders the highlighted read-only view. Content is escaped
// by html/template; the inline script only navigates between <mark> elements.
var previewTemplate = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.DocumentName}}</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.6; }
header { display: flex; justify-content: space-between; align-items: baseline; border-bottom: 1px solid #ddd; padding-bottom: 0.5rem; }
mark { background: #ffe08a; padding: 0 2px; }
pre { white-space: pre-wrap; word-wrap: break-word; font: inherit; }
nav button { margin-left: 0.5rem; }
</style>
</head>
<body>
<header>
<h1>{{.DocumentName}}</h1>
{{if .HighlightCount}}<nav>
<span id="pos">1 / {{.HighlightCount}}</span>
<button id="prev" type="button">&#8593;</button>
<button id="next" type="button">&#8595;</button>
</nav>{{end}}
</header>
<pre>{{range .Segments}}{{if .Highlight}}<mark>{{.Text}}</mark>{{else}}{{.Text}}{{end}}{{end}}</pre>
<script>
(function () {
  var marks = document.querySelectorAll("mark");
  if (!marks.length) return;
  var current = 0;
  function show(i) {
    current = (i + marks.length) % marks.length;
    marks[current].scrollIntoView({ behavior: "smooth", block: "center" });
    var pos = document.getElementById("pos");
    if (pos) pos.textContent = (current + 1) + " / " + marks.length;
  }
  var prev = document.getElementById("prev");
  var next = document.getElementById("next");
  if (prev) prev.addEventListener("click", function () { show(current - 1); });
  if (next) next.addEventListener("click", function () { show(current + 1); });
  show(0);
})();
</script>
</body>
</html>
`))
