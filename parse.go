package site2pdf

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/docfold/go-site2pdf/internal/pdfobj"
)

// Parse worker bounds.
const (
	// minParseWorkers ensures forward progress.
	minParseWorkers = 1

	// maxParseWorkers caps fan-out; parsing is CPU and allocation bound.
	maxParseWorkers = 8
)

// RenderedPage pairs a source URL with the raw PDF bytes the renderer
// produced for it.
type RenderedPage struct {
	URL  string
	Data []byte
}

// SourceDocument is one parsed page: its source URL, its object graph, and
// (once merged) the range of pages it contributed to the merged document.
type SourceDocument struct {
	URL       string
	Doc       *pdfobj.Document
	PageStart int
	PageCount int
}

// parseSource reads one rendered page into an object graph. Any structural
// failure is reported as ErrMalformedDocument naming the source URL.
func parseSource(page RenderedPage) (*SourceDocument, error) {
	doc, err := pdfobj.Parse(page.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedDocument, page.URL, err)
	}
	return &SourceDocument{URL: page.URL, Doc: doc, PageCount: len(doc.PageRefs)}, nil
}

// parseSources parses every rendered page, fanning out across workers.
// Documents are independent, so failures are collected and reported together
// rather than aborting at the first broken page. The returned slice preserves
// input order.
func parseSources(pages []RenderedPage, workers int) ([]*SourceDocument, error) {
	docs := make([]*SourceDocument, len(pages))
	errs := make([]error, len(pages))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < resolveParseWorkers(workers); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				docs[i], errs[i] = parseSource(pages[i])
			}
		}()
	}
	for i := range pages {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return docs, nil
}

// resolveParseWorkers determines the parse fan-out.
// Priority: explicit workers > GOMAXPROCS-based calculation.
func resolveParseWorkers(workers int) int {
	if workers > 0 {
		return workers
	}
	n := runtime.GOMAXPROCS(0)
	if n < minParseWorkers {
		return minParseWorkers
	}
	if n > maxParseWorkers {
		return maxParseWorkers
	}
	return n
}

// LinkAnnotation is one link found on a page: the page it sits on, its
// rectangle, and the raw target of its URI action. Links whose action is not
// an external URI (e.g. already internal go-to actions) are not reported.
type LinkAnnotation struct {
	PageIndex int
	Ref       pdfobj.Reference // the annotation object
	Rect      pdfobj.Array
	URI       string
}

// linkAnnotations surfaces every link annotation on every page of the graph,
// in page order.
func linkAnnotations(doc *pdfobj.Document) []LinkAnnotation {
	var links []LinkAnnotation
	for pageIdx, pageRef := range doc.PageRefs {
		page, ok := doc.ResolveDict(pageRef)
		if !ok {
			continue
		}
		annots, ok := doc.ResolveArray(page["Annots"])
		if !ok {
			continue
		}
		for _, entry := range annots {
			annotRef, ok := entry.(pdfobj.Reference)
			if !ok {
				continue
			}
			annot, ok := doc.ResolveDict(annotRef)
			if !ok || annot.Name("Subtype") != "Link" {
				continue
			}
			action, ok := doc.ResolveDict(annot["A"])
			if !ok || action.Name("S") != "URI" {
				continue
			}
			uri, ok := doc.Resolve(action["URI"]).(pdfobj.String)
			if !ok {
				continue
			}
			rect, _ := doc.ResolveArray(annot["Rect"])
			links = append(links, LinkAnnotation{
				PageIndex: pageIdx,
				Ref:       annotRef,
				Rect:      rect,
				URI:       string(uri),
			})
		}
	}
	return links
}
