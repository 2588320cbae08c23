package extract

import (
	"strings"

	"codetracker/internal/urlutil"
)

// Recognized platforms, in detection priority order.
const (
	PlatformLeetCode      = "leetcode"
	PlatformGeeksForGeeks = "geeksforgeeks"
	PlatformInterviewBit  = "interviewbit"
	PlatformCodeChef      = "codechef"
	PlatformCodeforces    = "codeforces"
)

type platformDomain struct {
	id     string
	domain string
}

var platformDomains = []platformDomain{
	{PlatformLeetCode, "leetcode.com"},
	{PlatformGeeksForGeeks, "geeksforgeeks.org"},
	{PlatformInterviewBit, "interviewbit.com"},
	{PlatformCodeChef, "codechef.com"},
	{PlatformCodeforces, "codeforces.com"},
}

// Domains returns every recognized platform domain, with www variants,
// suitable for a collector allowlist.
func Domains() []string {
	out := make([]string, 0, len(platformDomains)*2)
	for _, p := range platformDomains {
		out = append(out, p.domain, "www."+p.domain)
	}
	return out
}

// DetectPlatform maps a URL to a recognized platform id, or "" when the
// page is not on any known coding site. Only the host is consulted, so a
// platform domain appearing in the path of another site does not match.
func DetectPlatform(url string) string {
	host := urlutil.Host(url)
	if host == "" {
		return ""
	}
	for _, p := range platformDomains {
		if host == p.domain || strings.HasSuffix(host, "."+p.domain) {
			return p.id
		}
	}
	return ""
}

// ContainerSelector returns the selector whose appearance signals that a
// platform's problem content finished rendering. The generic selector is
// returned for unrecognized platforms.
func ContainerSelector(platform string) string {
	switch platform {
	case PlatformLeetCode:
		return `div[data-track-load="description_content"], [data-cy="question-content"]`
	case PlatformGeeksForGeeks:
		return `div[class*='problems_problem_content']`
	case PlatformInterviewBit:
		return `.p-html-content__container`
	case PlatformCodeChef:
		return `#problem-statement`
	case PlatformCodeforces:
		return `.problem-statement`
	default:
		return `h1`
	}
}
