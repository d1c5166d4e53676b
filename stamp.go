package site2pdf

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/docfold/go-site2pdf/internal/pdfobj"
)

// dotsPerInch converts stamp coordinates from inches to the coordinate space
// the renderer prints at.
const dotsPerInch = 300

// stampPageNumbers paints "Page N" on every page at the configured position,
// numbering from 1 in merged page order. A nil style disables stamping.
func stampPageNumbers(doc *pdfobj.Document, pageRefs []pdfobj.Reference, style *PageNumbers) error {
	if style == nil {
		return nil
	}
	if err := style.Validate(); err != nil {
		return err
	}

	// One shared font object; the standard Type1 fonts need no embedded
	// font program.
	fontRef := doc.Add(pdfobj.Dict{
		"Type":     pdfobj.Name("Font"),
		"Subtype":  pdfobj.Name("Type1"),
		"BaseFont": pdfobj.Name(style.Font),
	})

	for i, pageRef := range pageRefs {
		page, ok := doc.ResolveDict(pageRef)
		if !ok {
			continue
		}
		fontKey := addFontResource(doc, page, fontRef)
		if err := appendContent(doc, page, stampOps(style, fontKey, i+1)); err != nil {
			return fmt.Errorf("stamping page %d: %w", i+1, err)
		}
	}
	return nil
}

// addFontResource registers fontRef under the page's font resources and
// returns its key. Existing keys are never overwritten; the first free F<n>
// slot is used, or the slot already holding fontRef when the page shares its
// resource dictionary with an already stamped page.
func addFontResource(doc *pdfobj.Document, page pdfobj.Dict, fontRef pdfobj.Reference) pdfobj.Name {
	resources, ok := doc.ResolveDict(page["Resources"])
	if !ok {
		resources = pdfobj.Dict{}
		page["Resources"] = resources
	}
	fonts, ok := doc.ResolveDict(resources["Font"])
	if !ok {
		fonts = pdfobj.Dict{}
		resources["Font"] = fonts
	}
	for n := 1; ; n++ {
		key := pdfobj.Name(fmt.Sprintf("F%d", n))
		existing, taken := fonts[key]
		if !taken {
			fonts[key] = fontRef
			return key
		}
		if ref, isRef := existing.(pdfobj.Reference); isRef && ref == fontRef {
			return key
		}
	}
}

// stampOps renders the text operators for one page's stamp. The renderer
// leaves the page coordinate system flipped (origin top left, y growing
// down), so the text matrix flips back to keep glyphs upright and the
// configured offsets are measured from the top left corner.
func stampOps(style *PageNumbers, fontKey pdfobj.Name, pageNum int) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "BT\n%s %s %s rg\n/%s %d Tf\n1 0 0 -1 %s %s Tm\n(Page %d) Tj\nET",
		coord(style.Color.R), coord(style.Color.G), coord(style.Color.B),
		fontKey, style.Size,
		coord(style.X*dotsPerInch), coord(style.Y*dotsPerInch),
		pageNum)
	return b.Bytes()
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// appendContent rebuilds the page's content as a single compressed stream:
// the decoded bytes of every existing content stream, in order, followed by
// ops. Operator streams of one page form one token sequence, so plain
// newline-joined concatenation preserves the original rendering.
func appendContent(doc *pdfobj.Document, page pdfobj.Dict, ops []byte) error {
	var parts [][]byte
	switch contents := doc.Resolve(page["Contents"]).(type) {
	case pdfobj.Stream:
		data, err := contents.Decoded(0)
		if err != nil {
			return err
		}
		parts = append(parts, data)
	case pdfobj.Array:
		for _, elem := range contents {
			stream, ok := doc.Resolve(elem).(pdfobj.Stream)
			if !ok {
				return fmt.Errorf("%w: content entry is not a stream", ErrMalformedDocument)
			}
			data, err := stream.Decoded(0)
			if err != nil {
				return err
			}
			parts = append(parts, data)
		}
	}
	parts = append(parts, ops)

	page["Contents"] = doc.Add(pdfobj.Stream{
		Dict: pdfobj.Dict{"Filter": pdfobj.Name("FlateDecode")},
		Data: pdfobj.FlateEncode(bytes.Join(parts, []byte("\n"))),
	})
	return nil
}
