package backend

import (
	"regexp"
	"strings"
)

const (
	greetingReply = "Hello! I'm your shopping assistant. I can help you find products, " +
		"compare items, and answer questions about our inventory. What are you looking for today?"
	helpReply = "I can help you with:\n" +
		"• **Search products** - 'Find me laptops under $1000'\n" +
		"• **Filter by brand** - 'Show me Apple products'\n" +
		"• **Price ranges** - 'Products between $100-500'\n" +
		"• **Product details** - 'Tell me about product ID 123'\n" +
		"• **Compare products** - 'Compare iPhone vs Samsung'\n\n" +
		"Just tell me what you're looking for in natural language!"
	noResultsReply = "I couldn't find any products matching your criteria. " +
		"Try adjusting your search terms or filters."
	fallbackReply = "I'm sorry, I didn't understand that. Could you please rephrase your question? " +
		"You can ask me to search for products, get product details, or type 'help' for more options."
)

type intentPattern struct {
	intent   string
	patterns []*regexp.Regexp
}

// Checked in order; the first match wins.
var intents = []intentPattern{
	{"greeting", compile(`\b(hi|hello|hey|good morning|good afternoon|good evening)\b`, `\bstart\b`)},
	{"search", compile(`\b(search|find|look for|show me|get me)\b`, `\b(products?|items?)\b.*\b(with|having|contains?)\b`, `\bwant\b.*\b(buy|purchase)\b`)},
	{"filter", compile(`\b(filter|sort|order by|arrange)\b`, `\b(under|below|above|over)\b.*\$([\d,]+)`, `\b(cheap|expensive|budget|premium)\b`)},
	{"details", compile(`\b(details?|info|information|specs?|specifications?)\b`, `\btell me (about|more)\b`)},
	{"comparison", compile(`\b(compare|vs|versus|difference)\b`, `\b(better|best|worst)\b`)},
	{"help", compile(`\b(help|assist|support)\b`, `\bhow (do|can) i\b`)},
}

var (
	brandPattern    = regexp.MustCompile(`\b(apple|samsung|sony|lg|dell|hp|lenovo|asus|acer|nike|adidas|puma)\b`)
	categoryPattern = regexp.MustCompile(`\b(laptop|phone|tablet|headphone|speaker|shoe|shirt|book|electronics|clothing)s?\b`)
)

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// Reply is a canned assistant answer.
type Reply struct {
	Intent     string
	Confidence float64
	Content    string
	Metadata   map[string]any
}

// Respond classifies text with keyword patterns and picks a canned answer.
// The catalog is empty, so searches never return products.
func Respond(text string) Reply {
	lower := strings.ToLower(text)
	intent, confidence := "other", 0.3
	for _, ip := range intents {
		if matchAny(ip.patterns, lower) {
			intent, confidence = ip.intent, 0.8
			break
		}
	}

	r := Reply{Intent: intent, Confidence: confidence}
	switch intent {
	case "greeting":
		r.Content = greetingReply
		r.Metadata = map[string]any{"intent": "greeting"}
	case "search":
		params := map[string]any{}
		if m := brandPattern.FindString(lower); m != "" {
			params["brand"] = m
		}
		if m := categoryPattern.FindStringSubmatch(lower); m != nil {
			params["query"] = m[1]
		}
		r.Content = noResultsReply
		r.Metadata = map[string]any{"intent": "search", "products": []any{}, "search_params": params}
	case "help":
		r.Content = helpReply
		r.Metadata = map[string]any{"intent": "help"}
	default:
		r.Content = fallbackReply
		r.Metadata = map[string]any{"intent": "error"}
	}
	return r
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
