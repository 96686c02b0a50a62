package extraction

import "fmt"

const metadataSystemPrompt = "You are an expert in analyzing book information. Always return valid JSON that follows the requested schema exactly."

const searchSystemPrompt = "You extract catalog search terms from book cover text. Always return valid JSON."

func buildMetadataPrompt(ocrText string) string {
	return fmt.Sprintf(`The following text is OCR output from several faces of the SAME book (Vietnamese, or translated from another language).

OCR TEXT:
%s

TASK:
1. Read all of the text carefully, including small print, text in corners and text with OCR errors.
2. Extract the following fields (use null when a field is not found):

- title: the exact book title (usually the largest, most prominent text).
- author: the original author (look for "Tác giả: ...", "Author: ...", names above or left of "sáng tác", or ALL CAPS names in a corner or at the top).
- translator: the translator, if any. Search carefully for these patterns:
  * "<Name> dịch" (e.g. "Nguyệt Lạc dịch", "Nguyễn Văn B dịch")
  * "Dịch giả: <Name>"
  * "Người dịch: <Name>"
  * "Translator: <Name>" or "Translated by <Name>"
  * "<Name> - Dịch"
  * If NONE of these patterns matches, translator is null. Never guess a translator.
- publisher: the publishing house.
- year: year of publication (4 digits, e.g. 2020).
- isbn: the ISBN (digits only, no hyphens).
- description: the full blurb from the back cover.

IMPORTANT:
- Author names often sit ABOVE or BELOW the title and may be in ALL CAPS (e.g. NGƯU DOANH, NGUYỄN VĂN A).
- Translators usually follow the author name or sit in a corner with the word "dịch" after the name.
- If the OCR text has spelling or diacritic errors, infer and correct the intended name.

OUTPUT:
Return ONLY one JSON object, with no explanation:

{
  "title": "...",
  "author": "...",
  "translator": "..." or null,
  "publisher": "...",
  "year": "...",
  "isbn": "...",
  "description": "..."
}`, ocrText)
}

func buildSearchPrompt(ocrText string) string {
	return fmt.Sprintf(`Analyze OCR text from a Vietnamese book cover. The text may contain OCR errors.

OCR TEXT:
"""
%s
"""

TASK:
1. Find and fix spelling errors where present.
2. Identify the BOOK TITLE and the main AUTHOR (not the translator or publisher). Keep whichever of the two is present.
3. Drop ISBNs, prices, publisher names, "tái bản lần thứ X" and similar noise.
4. Produce important keywords for searching.

Return this JSON format, with NO other text:
{
  "title": "corrected exact title",
  "author": "main author",
  "alternative_title": "English or other title if present",
  "keywords": ["keyword1", "keyword2", "keyword3"],
  "confidence": 0.9
}`, ocrText)
}
