package preview

import (
	"context"
	"io"
	"strings"

	"github.com/JonMunkholm/fieldpreview/internal/zipstream"
)

// recordStream reads records from r into acc and settles done once.
type recordStream func(r io.Reader, acc *Accumulator, done *completion)

// job is the state one extractor works with.
type job struct {
	desc    SourceDescriptor
	fetcher Fetcher
	acc     *Accumulator
	opts    Options
}

// watchContext closes body when ctx ends before the stream settles. The
// close makes a blocked read return; the cancellation is recorded first so
// the read error that follows is not reported in its place.
func watchContext(ctx context.Context, body io.Closer, done *completion) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		if done.settle(TerminationFailed, ctx.Err()) {
			body.Close()
		}
	})
}

// runStream fetches the source and feeds its body to consume.
func runStream(ctx context.Context, j *job, step string, consume recordStream) StepResult {
	res := StepResult{Step: step}
	j.acc.begin()

	body, err := j.fetcher.Fetch(ctx, FetchRequest{URL: j.desc.URL})
	if err != nil {
		return res.fail(err)
	}
	defer body.Close()

	var done completion
	stop := watchContext(ctx, body, &done)
	defer stop()

	r, counter := WrapForStreaming(body)
	before := j.acc.Len()
	consume(r, j.acc, &done)

	res.Records = j.acc.Len() - before
	res.BytesRead = counter.BytesRead
	return res.finish(done.result())
}

// runZip fetches a zip archive and feeds each file entry to consume until
// acc is full. One step result is recorded per entry read, plus one for
// the archive as a whole.
func runZip(ctx context.Context, j *job, step string, consume recordStream) []StepResult {
	archive := StepResult{Step: "zip.archive"}
	j.acc.begin()

	body, err := j.fetcher.Fetch(ctx, FetchRequest{URL: j.desc.URL})
	if err != nil {
		return []StepResult{archive.fail(err)}
	}
	defer body.Close()

	var done completion
	stop := watchContext(ctx, body, &done)
	defer stop()

	counter := NewCountingReader(body)
	zr := zipstream.NewReader(counter)

	var steps []StepResult
	for {
		if j.acc.Full() {
			done.settle(TerminationCapped, nil)
			break
		}
		entry, err := zr.Next()
		if err == io.EOF {
			done.settle(TerminationExhausted, nil)
			break
		}
		if err != nil {
			done.settle(TerminationFailed, err)
			break
		}
		if skipEntry(entry) {
			continue
		}

		entryStep := StepResult{Step: step + ":" + entry.Name}
		var entryDone completion
		before := j.acc.Len()
		consume(NewUTF8Sanitizer(NewBOMSkippingReader(entry)), j.acc, &entryDone)
		entryStep.Records = j.acc.Len() - before
		steps = append(steps, entryStep.finish(entryDone.result()))
	}

	archive.Records = j.acc.Len()
	archive.BytesRead = counter.BytesRead
	return append(steps, archive.finish(done.result()))
}

// skipEntry reports whether an archive entry holds no data worth
// previewing: directories and macOS resource forks.
func skipEntry(e *zipstream.Entry) bool {
	if e.IsDir() {
		return true
	}
	if strings.HasPrefix(e.Name, "__MACOSX/") {
		return true
	}
	base := e.Name[strings.LastIndex(e.Name, "/")+1:]
	return base == ".DS_Store"
}
