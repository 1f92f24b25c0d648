package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/codecom/codecom-api/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	MinRating = 1
	MaxRating = 5

	filledStar = "★"
	emptyStar  = "☆"
)

// Renderer produces the notification email bodies. Values are escaped for
// their HTML context; it is safe for concurrent use.
type Renderer struct {
	templates *template.Template
	now       func() time.Time
}

// Option configures a Renderer
type Option func(*Renderer)

// WithClock overrides the clock used for the footer year
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		r.now = now
	}
}

// NewRenderer parses the embedded templates
func NewRenderer(opts ...Option) (*Renderer, error) {
	tmpl, err := template.New("email").
		Funcs(template.FuncMap{"text": escapeText, "nl2br": nl2br}).
		ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	r := &Renderer{templates: tmpl, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type applicationView struct {
	Name       string
	Email      string
	Phone      string
	Location   string
	Position   string
	Experience string
	Portfolio  string
	Motivation string
	Additional string
	Attachment string
	Year       int
}

type feedbackView struct {
	Name     string
	Company  string
	Email    string
	Rating   int
	Stars    string
	Feedback string
	Year     int
}

// RenderApplication renders the career application email. attachmentName is
// the uploaded CV filename, empty when no file came with the submission.
func (r *Renderer) RenderApplication(sub *models.ApplicationSubmission, attachmentName string) (string, error) {
	return r.execute("application", applicationView{
		Name:       sub.Name.String(),
		Email:      sub.Email.String(),
		Phone:      sub.Phone.String(),
		Location:   sub.Location.String(),
		Position:   sub.Position.String(),
		Experience: sub.Experience.String(),
		Portfolio:  sub.Portfolio.String(),
		Motivation: sub.Motivation.String(),
		Additional: sub.Additional.String(),
		Attachment: attachmentName,
		Year:       r.now().Year(),
	})
}

// RenderFeedback renders the client feedback email
func (r *Renderer) RenderFeedback(sub *models.FeedbackSubmission) (string, error) {
	rating := ClampRating(sub.Rating.String())
	return r.execute("feedback", feedbackView{
		Name:     sub.Name.String(),
		Company:  sub.Company.String(),
		Email:    sub.Email.String(),
		Rating:   rating,
		Stars:    Stars(rating),
		Feedback: sub.Feedback.String(),
		Year:     r.now().Year(),
	})
}

func (r *Renderer) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s email: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// ClampRating reads the leading integer of raw (surrounding text and any
// fraction are ignored) and clamps it to [MinRating, MaxRating]. Input
// without a leading integer yields MinRating.
func ClampRating(raw string) int {
	s := strings.TrimLeft(raw, " \t\r\n\v\f")

	negative := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		negative = s[0] == '-'
		s = s[1:]
	}

	n, digits := 0, 0
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		digits++
		if n <= MaxRating {
			n = n*10 + int(s[i]-'0')
		}
	}

	if digits == 0 || negative || n < MinRating {
		return MinRating
	}
	if n > MaxRating {
		return MaxRating
	}
	return n
}

// Stars renders n filled glyphs followed by empty glyphs up to MaxRating.
// n is clamped to [0, MaxRating].
func Stars(n int) string {
	n = max(0, min(n, MaxRating))
	return strings.Repeat(filledStar, n) + strings.Repeat(emptyStar, MaxRating-n)
}

// textEscaper covers the characters that are markup inside an element body.
// Quotes and '+' are left alone so values like "+1 555 0100" or "O'Brien"
// reach the inbox as typed.
var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\x00", "\uFFFD",
)

// escapeText escapes s for an HTML text node. Only use it between tags,
// never inside attributes.
func escapeText(s string) template.HTML {
	return template.HTML(textEscaper.Replace(s)) //nolint:gosec // escaped for text context
}

// nl2br escapes s for a text node and turns line breaks into <br> tags
func nl2br(s string) template.HTML {
	escaped := textEscaper.Replace(strings.ReplaceAll(s, "\r\n", "\n"))
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>")) //nolint:gosec // escaped above
}
