package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/veritas/internal/domain/ai"
)

// schema is shared by every prompt so all paths decode the same way.
const schema = `{
  "product_name": "<specific product name, brand and model>",
  "score": <integer 0-100>,
  "verdict": "<one short sentence>",
  "red_flags": ["<string>"],
  "key_complaints": ["<string>"],
  "reviews_summary": "<string>",
  "detailed_technical_analysis": {"<aspect>": "<string>"}
}`

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a consumer-protection analyst who judges whether an online product listing can be trusted. You must produce one valid JSON object only (no commentary) that follows the schema below.

Requirements:
- Output must be a single JSON object.
- score is an integer from 0 (certain scam) to 100 (top-tier authentic).
- product_name must name the actual product. Never answer "unknown", "generic" or a placeholder.
- red_flags and key_complaints are arrays of short strings; use [] when there are none.
- Base the verdict on evidence: fake reviews, unrealistic prices, missing seller details, quality complaints.
- Marketplaces known for unvetted third-party sellers carry extra risk; lower the score when the listing gives no reason to trust the seller.

Schema:
` + schema
}

// Builder renders the prompts used by the analysis service.
type Builder struct {
	Temperature *float32
}

func NewBuilder() Builder {
	t := float32(0.2)
	return Builder{Temperature: &t}
}

// Direct asks for a verdict from scraped page content.
func (b Builder) Direct(url, content string) ai.Prompt {
	return ai.Prompt{
		System:      GetSystemPrompt(),
		User:        fmt.Sprintf("Analyze this product page and respond with the JSON per schema.\nURL: %s\n\nPage content:\n%s", url, content),
		Temperature: b.Temperature,
	}
}

// Investigative is used when the page could not be read. The model is asked to research
// the product on its own.
func (b Builder) Investigative(url, identifier string) ai.Prompt {
	var sb strings.Builder
	sb.WriteString("The product page below blocks automated access, so its content is not available.\n")
	fmt.Fprintf(&sb, "URL: %s\n", url)
	if identifier != "" {
		fmt.Fprintf(&sb, "Likely product: %s\n", identifier)
	}
	sb.WriteString("Search the web for this exact listing and its reviews, complaints and seller reputation, ")
	sb.WriteString("identify the specific product, and respond with the JSON per schema. ")
	sb.WriteString("If evidence is thin, say so in the verdict but still commit to a score.")
	return ai.Prompt{
		System:      GetSystemPrompt(),
		User:        sb.String(),
		WebSearch:   true,
		Temperature: b.Temperature,
	}
}

// Vision asks for a verdict from a screenshot of a listing.
func (b Builder) Vision(source string, img *ai.Image) ai.Prompt {
	user := "Analyze this product screenshot. Read the product name, price, seller and visible reviews, and respond with the JSON per schema."
	if source != "" {
		user += "\nThe screenshot was taken from: " + source
	}
	return ai.Prompt{
		System:      GetSystemPrompt(),
		User:        user,
		Image:       img,
		Temperature: b.Temperature,
	}
}
