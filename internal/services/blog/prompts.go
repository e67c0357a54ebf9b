package blog

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	stockSystemPrompt     = "You are a professional financial analyst and blogger."
	educationSystemPrompt = "You are a professional trading educator and content creator. Create comprehensive, valuable educational content that helps traders improve their skills."
)

const marketingBlock = `
Marketing Integration (Natural, not pushy):
- Mention "XenAlgo" tools naturally in relevant sections
- Include call-to-action for premium indicators/courses
- Add special offers (50% off, free trials, etc.)
- Use social proof ("used by 10,000+ traders")
- Promote indicators, courses, and AI tools
`

func stockPrompt(req *StockBlogRequest) (string, error) {
	stockData, err := json.MarshalIndent(req.StockData, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode stock data: %w", err)
	}
	newsData, err := json.MarshalIndent(req.NewsData, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode news data: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Generate a professional blog post about %s based on the following data:\n\n", req.StockSymbol)
	fmt.Fprintf(&b, "Stock Data: %s\n", stockData)
	fmt.Fprintf(&b, "News: %s\n\n", newsData)
	fmt.Fprintf(&b, "Style: %s\n\n", req.Style)
	b.WriteString("Please create a well-structured blog post with:\n")
	b.WriteString("1. Introduction\n2. Current market position\n3. Key news and developments\n4. Technical analysis\n5. Conclusion\n\n")
	b.WriteString("Make it engaging and informative for traders and investors.")
	return b.String(), nil
}

func educationPrompt(topic string, includeMarketing bool, style string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a comprehensive, professional trading education blog post about: %q\n\n", topic)
	b.WriteString(`Requirements:
1. **Structure**: Introduction, Main Content (3-4 sections), Conclusion
2. **Length**: 1500-2000 words
3. **Style**: Professional but engaging, educational
4. **Content**: Theory + Practical Examples + Trading Tips
5. **SEO**: Include relevant keywords naturally
`)
	if includeMarketing {
		b.WriteString(marketingBlock)
	}
	b.WriteString(`
Format the response as JSON with:
{
    "title": "SEO-optimized title",
    "content": "Full blog content in Markdown",
    "meta_description": "SEO meta description",
    "keywords": ["keyword1", "keyword2", "keyword3"],
    "estimated_read_time": "X minutes",
    "category": "Technical Indicators/Trading Strategies/Market Analysis/Risk Management/Options Trading"
}
`)
	fmt.Fprintf(&b, "\nMake it valuable, educational, and %s.", style)
	return b.String()
}
