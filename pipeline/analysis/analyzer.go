// Package analysis provides the text-analysis stage of the pipeline: it
// splits narrative text into narration, dialogue, and thought segments
// and attributes each quoted span to a speaker.
package analysis

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/storyvox/storyvox/pipeline"
)

// Analyzer implements pipeline.TextAnalyzer.
type Analyzer struct {
	// Quoted spans. Straight and curly double quotes carry dialogue;
	// underscore-wrapped spans carry internal monologue.
	dialogueRegex *regexp.Regexp
	thoughtRegex  *regexp.Regexp

	// Speaker attribution around a quote: `Sarah said, "..."` and
	// `"..." said Sarah` / `"..." Sarah replied`.
	beforeQuoteRegex *regexp.Regexp
	afterQuoteRegex  *regexp.Regexp

	// Options
	minLength int
}

// reportingVerbs are the verbs that attribute a quote to a speaker.
const reportingVerbs = `said|replied|asked|answered|shouted|whispered|muttered|exclaimed|cried|called|continued|added|thought|wondered|mused`

// NewAnalyzer creates an analyzer with the default patterns.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		dialogueRegex: regexp.MustCompile(`["\x{201C}]([^"\x{201C}\x{201D}]+)["\x{201D}]`),
		thoughtRegex:  regexp.MustCompile(`_([^_]+)_`),

		beforeQuoteRegex: regexp.MustCompile(
			`([A-Z][a-zA-Z'\-]+)(?:\s+[a-z]+)?\s+(?:` + reportingVerbs + `)[,:]?\s*$`,
		),
		afterQuoteRegex: regexp.MustCompile(
			`^[,]?\s*(?:(?:` + reportingVerbs + `)\s+([A-Z][a-zA-Z'\-]+)|([A-Z][a-zA-Z'\-]+)\s+(?:` + reportingVerbs + `))`,
		),

		minLength: 1,
	}
}

// SetMinLength sets the minimum content length for a segment to be kept.
func (a *Analyzer) SetMinLength(n int) {
	a.minLength = n
}

// ParseText splits text into ordered segments. It fails on blank input.
func (a *Analyzer) ParseText(ctx context.Context, text string) pipeline.Result[[]pipeline.Segment] {
	if err := ctx.Err(); err != nil {
		return pipeline.FailErr[[]pipeline.Segment](err)
	}
	if strings.TrimSpace(text) == "" {
		return pipeline.FailErr[[]pipeline.Segment](pipeline.ErrEmptyInput)
	}

	type span struct {
		start, end int
		content    string
		kind       pipeline.SegmentKind
	}

	var spans []span
	for _, m := range a.dialogueRegex.FindAllStringSubmatchIndex(text, -1) {
		spans = append(spans, span{
			start:   m[0],
			end:     m[1],
			content: text[m[2]:m[3]],
			kind:    pipeline.KindDialogue,
		})
	}
	for _, m := range a.thoughtRegex.FindAllStringSubmatchIndex(text, -1) {
		spans = append(spans, span{
			start:   m[0],
			end:     m[1],
			content: text[m[2]:m[3]],
			kind:    pipeline.KindThought,
		})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var segments []pipeline.Segment
	cursor := 0
	emit := func(content string, kind pipeline.SegmentKind, speaker string, start, end int) {
		content = strings.TrimSpace(content)
		if len(content) < a.minLength || content == "" {
			return
		}
		segments = append(segments, pipeline.Segment{
			ID:      len(segments),
			Content: content,
			Speaker: speaker,
			Kind:    kind,
			Start:   start,
			End:     end,
		})
	}

	for _, s := range spans {
		if s.start < cursor {
			// Overlapping span, already covered by the previous one.
			continue
		}
		if s.start > cursor {
			emit(text[cursor:s.start], pipeline.KindNarration, pipeline.NarratorSpeaker, cursor, s.start)
		}
		speaker := a.attributeSpeaker(text, s.start, s.end)
		emit(s.content, s.kind, speaker, s.start, s.end)
		cursor = s.end
	}
	if cursor < len(text) {
		emit(text[cursor:], pipeline.KindNarration, pipeline.NarratorSpeaker, cursor, len(text))
	}

	if len(segments) == 0 {
		return pipeline.FailErr[[]pipeline.Segment](pipeline.ErrNoSegments)
	}
	return pipeline.Ok(segments)
}

// attributeSpeaker looks for a reporting clause immediately before or
// after the quoted span. Unattributed quotes fall back to the narrator.
func (a *Analyzer) attributeSpeaker(text string, start, end int) string {
	before := text[:start]
	if m := a.beforeQuoteRegex.FindStringSubmatch(before); m != nil {
		return m[1]
	}
	after := text[end:]
	if m := a.afterQuoteRegex.FindStringSubmatch(after); m != nil {
		if m[1] != "" {
			return m[1]
		}
		return m[2]
	}
	return pipeline.NarratorSpeaker
}
