package extract

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"codetracker/internal/models"
)

// ExtractFields runs the platform's field extractors against a parsed
// document and returns a fully defaulted draft. It never fails: a field
// whose selectors all miss keeps its default (empty string, Medium,
// empty list).
func ExtractFields(platform string, doc *goquery.Document, pageURL string) models.ProblemDraft {
	draft := models.ProblemDraft{
		URL:        pageURL,
		Platform:   platform,
		Difficulty: models.DifficultyMedium,
	}
	if doc == nil {
		draft.Title = defaultTitle(platform)
		return draft
	}

	switch platform {
	case PlatformLeetCode:
		extractLeetCode(&draft, doc)
	case PlatformGeeksForGeeks:
		extractGeeksForGeeks(&draft, doc)
	case PlatformInterviewBit:
		extractInterviewBit(&draft, doc)
	case PlatformCodeChef:
		extractCodeChef(&draft, doc, pageURL)
	case PlatformCodeforces:
		extractCodeforces(&draft, doc)
	default:
		extractGeneric(&draft, doc, pageURL)
	}

	if draft.Title == "" {
		draft.Title = titleFromDocument(doc, platform)
	}
	return draft
}

func extractLeetCode(draft *models.ProblemDraft, doc *goquery.Document) {
	draft.Title = firstText(doc,
		`[data-cy="question-title"]`,
		`.css-v3d350`,
		`.question-title h3`,
		`h1`,
	)

	difficultySelectors := []string{
		`[class*="text-difficulty-easy"]`,
		`[class*="text-difficulty-medium"]`,
		`[class*="text-difficulty-hard"]`,
		`[class*="text-green"]`,
		`[class*="text-yellow"]`,
		`[class*="text-red"]`,
		`[class*="text-orange"]`,
		`.css-10o4wqw`,
		`.difficulty`,
	}
	for _, selector := range difficultySelectors {
		sel := doc.Find(selector).First()
		if sel.Length() > 0 {
			draft.Difficulty = models.ParseDifficulty(normalizeText(sel.Text()))
			break
		}
	}

	draft.Topics = firstTexts(doc,
		`a[data-act*="topic-list-click"]`,
		`.css-1v6v87n`,
		`.topic-tag`,
		`.tag`,
		`.css-1hky5w4 a`,
		`a[href^="/tag/"]`,
	)

	if desc := firstText(doc,
		`[data-cy="question-content"]`,
		`.question-content`,
		`.css-1uqhpru`,
		`div[data-track-load="description_content"]`,
		`.elfjs`,
	); desc != "" {
		draft.Description = truncate(desc, models.MaxDescriptionLength)
	}

	draft.Companies = firstTexts(doc, `.company-tag, .css-1et4wmp`)
}

func extractGeeksForGeeks(draft *models.ProblemDraft, doc *goquery.Document) {
	draft.Title = firstText(doc,
		`.problem-statement h1`,
		`.problemTitle`,
		`h1`,
		`.header-title`,
	)

	// The difficulty label lives in the first <strong> of the header block.
	if header := doc.Find(`div[class*='problems_header_description']`).First(); header.Length() > 0 {
		if strong := header.Find("span strong").First(); strong.Length() > 0 {
			draft.Difficulty = models.ParseDifficulty(normalizeText(strong.Text()))
		}
	}

	// Topic tags sit in the accordion section labeled "Topic Tags";
	// companies share the same markup under a different label.
	doc.Find(`div[class*='problems_accordion_tags']`).EachWithBreak(func(_ int, section *goquery.Selection) bool {
		label := section.Find("strong").First().Text()
		tags := collectTexts(section.Find("div.ui.labels a"))
		switch {
		case strings.Contains(label, "Topic Tags"):
			draft.Topics = tags
		case strings.Contains(label, "Company Tags"):
			draft.Companies = tags
		}
		return !(len(draft.Topics) > 0 && len(draft.Companies) > 0)
	})

	if desc := firstText(doc, `div[class*='problems_problem_content']`); desc != "" {
		draft.Description = truncate(desc, models.MaxDescriptionLength)
	}
}

func extractInterviewBit(draft *models.ProblemDraft, doc *goquery.Document) {
	draft.Title = firstText(doc, `.problem-title`, `h1`)

	if diff := doc.Find(`.p-difficulty-level`).First(); diff.Length() > 0 {
		class, _ := diff.Attr("class")
		switch {
		case strings.Contains(class, "p-difficulty-level--easy"):
			draft.Difficulty = models.DifficultyEasy
		case strings.Contains(class, "p-difficulty-level--medium"):
			draft.Difficulty = models.DifficultyMedium
		case strings.Contains(class, "p-difficulty-level--hard"):
			draft.Difficulty = models.DifficultyHard
		default:
			draft.Difficulty = models.ParseDifficulty(normalizeText(diff.Text()))
		}
	}

	draft.Topics = firstTexts(doc, `div.ib-breadcrumb a.ib-breadcrumb__item--link`)

	if desc := firstText(doc, `.p-html-content__container`); desc != "" {
		draft.Description = truncate(desc, models.MaxDescriptionLength)
	}
}

func extractCodeChef(draft *models.ProblemDraft, doc *goquery.Document, pageURL string) {
	draft.Title = firstText(doc, `#problem-statement h3`, `h1`)

	// CodeChef exposes no difficulty marker on the page; infer from the
	// contest code in the URL.
	if parsed, err := url.Parse(pageURL); err == nil {
		parts := strings.Split(strings.TrimRight(parsed.Path, "/"), "/")
		code := parts[len(parts)-1]
		if strings.Contains(code, "EASY") {
			draft.Difficulty = models.DifficultyEasy
		}
	}

	draft.Topics = firstTexts(doc, `.problem-tags a`, `.problem-tag`, `.tags a`)

	if desc := firstText(doc, `.problem-statement`); desc != "" {
		draft.Description = truncate(desc, models.MaxDescriptionLength)
	}
}

var reCodeforcesRating = regexp.MustCompile(`\*(\d+)`)

func extractCodeforces(draft *models.ProblemDraft, doc *goquery.Document) {
	draft.Title = firstText(doc, `.problem-statement .title`, `.title`)

	// Difficulty comes from the "*1200" rating tag rather than markup.
	if m := reCodeforcesRating.FindStringSubmatch(doc.Text()); m != nil {
		rating, _ := strconv.Atoi(m[1])
		switch {
		case rating < 1300:
			draft.Difficulty = models.DifficultyEasy
		case rating < 1800:
			draft.Difficulty = models.DifficultyMedium
		default:
			draft.Difficulty = models.DifficultyHard
		}
	}

	draft.Topics = firstTexts(doc, `.tag-box__type`, `.roundbox .tag-box a`)

	if desc := firstText(doc, `.problem-statement`); desc != "" {
		draft.Description = truncate(desc, models.MaxDescriptionLength)
	}
}

// extractGeneric covers unrecognized pages: a few very generic selectors,
// then readability for the description.
func extractGeneric(draft *models.ProblemDraft, doc *goquery.Document, pageURL string) {
	draft.Title = firstText(doc, `h1`, `.title`, `.problem-title`, `[data-cy='question-title']`)

	if html, err := doc.Html(); err == nil {
		parsed, perr := url.Parse(pageURL)
		if perr != nil {
			parsed = nil
		}
		if article, rerr := readability.FromReader(strings.NewReader(html), parsed); rerr == nil {
			if excerpt := normalizeText(article.Excerpt); excerpt != "" {
				draft.Description = truncate(excerpt, models.MaxDescriptionLength)
			}
			// Readability rewrites titles around separators; the page-title
			// split in titleFromDocument stays authoritative whenever the
			// document has a <title> at all.
			if draft.Title == "" && doc.Find("title").Length() == 0 {
				draft.Title = normalizeText(article.Title)
			}
		}
	}
}

func collectTexts(sel *goquery.Selection) []string {
	var texts []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := normalizeText(s.Text()); t != "" {
			texts = append(texts, t)
		}
	})
	return texts
}

// titleFromDocument falls back to the page title split on the platform's
// delimiter, then to a per-platform default string.
func titleFromDocument(doc *goquery.Document, platform string) string {
	pageTitle := normalizeText(doc.Find("title").First().Text())
	if pageTitle != "" {
		if head := strings.TrimSpace(strings.Split(pageTitle, titleDelimiter(platform))[0]); head != "" {
			return head
		}
	}
	return defaultTitle(platform)
}

func titleDelimiter(platform string) string {
	switch platform {
	case PlatformGeeksForGeeks, PlatformInterviewBit, PlatformCodeChef:
		return " | "
	default:
		return " - "
	}
}

func defaultTitle(platform string) string {
	switch platform {
	case PlatformLeetCode:
		return "LeetCode Problem"
	case PlatformGeeksForGeeks:
		return "GeeksForGeeks Problem"
	case PlatformInterviewBit:
		return "InterviewBit Problem"
	case PlatformCodeChef:
		return "CodeChef Problem"
	case PlatformCodeforces:
		return "Codeforces Problem"
	default:
		return "Unknown Problem"
	}
}
