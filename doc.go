// Package office2pdf converts office documents, HTML, and Markdown to
// PDF using a bounded pool of expensive, stateful conversion workers.
//
// The native backends (a LibreOffice profile, a headless Chrome
// instance) are unsafe to touch from any thread but the one that
// created them. The package therefore pins each worker to a dedicated
// OS thread (AffinityPool), leases workers through a permit-gated
// resource pool (Pool), recycles them after a bounded number of uses,
// isolates cascading backend failures behind a circuit breaker
// (Breaker), caches produced PDFs with a sliding TTL (ArtifactCache),
// and guarantees no worker process outlives the service
// (ProcessGuard).
//
// Basic usage:
//
//	svc, err := office2pdf.New(
//		office2pdf.WithCacheDir(cacheDir),
//		office2pdf.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//	defer svc.Close()
//
//	res, err := svc.ConvertFile(ctx, "report.docx", "report.pdf", nil)
//
// Conversion pipeline by input format:
//
//  1. Office documents (.docx, .xlsx, .pptx, ...) via headless
//     LibreOffice, one private user profile per pooled worker
//  2. HTML via headless Chrome (go-rod)
//  3. Markdown via Goldmark (GFM, syntax highlighting), then Chrome
//
// All components are explicitly constructed and explicitly owned;
// none of them is a process-wide singleton.
package office2pdf
