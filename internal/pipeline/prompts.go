package pipeline

import (
	"fmt"
	"strings"
)

// maxPromptParagraphs bounds how much page text is sent to the brief model.
const maxPromptParagraphs = 60

// BriefPrompt asks for a content brief of the source page.
func BriefPrompt(page Page) string {
	var b strings.Builder
	b.WriteString("Write a content brief for a website rebuild. Describe the business, audience, ")
	b.WriteString("tone of voice and the key messages, then list the content that every page must keep.\n\n")
	fmt.Fprintf(&b, "URL: %s\nTitle: %s\n", page.URL, page.Title)
	if page.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", page.Description)
	}
	if len(page.Links) > 0 {
		b.WriteString("\nNavigation:\n")
		for _, l := range page.Links {
			fmt.Fprintf(&b, "- %s (%s)\n", l.Text, l.Href)
		}
	}
	if len(page.Headings) > 0 {
		b.WriteString("\nHeadings:\n")
		for _, h := range page.Headings {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}
	if len(page.Paragraphs) > 0 {
		b.WriteString("\nText:\n")
		for i, p := range page.Paragraphs {
			if i == maxPromptParagraphs {
				break
			}
			b.WriteString(p)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// DesignPrompt asks for a design guide derived from the brief.
func DesignPrompt(brief string) string {
	return "Write a concise design guide (palette, typography, spacing, imagery, " +
		"component style) for a website with this content brief:\n\n" + brief
}

// BlueprintPrompt asks for the page blueprint as JSON.
func BlueprintPrompt(page Page, brief, guide string) string {
	var b strings.Builder
	b.WriteString("Return only JSON describing the rebuilt website with this shape:\n")
	b.WriteString(`{"title": string, "theme": string, "pages": [{"slug": string, "title": string, `)
	b.WriteString(`"sections": [{"id": string, "kind": string, "props": {string: string}}]}]}`)
	b.WriteString("\n\nSection kinds: hero, features, gallery, testimonials, pricing, contact, content, footer.\n")
	fmt.Fprintf(&b, "\nSource: %s\n\nContent brief:\n%s\n\nDesign guide:\n%s\n", page.URL, brief, guide)
	return b.String()
}
