package sse

import (
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

var _ = Describe("Reader", func() {
	Describe("Next", func() {
		It("parses typed events in order", func() {
			r := NewReader(strings.NewReader("event:chunk\ndata:{\"text\":\"Hi\"}\n\nevent:end\ndata:{\"conversation_id\":\"c1\"}\n\n"))

			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Type).To(Equal("chunk"))
			Expect(ev.Data).To(Equal(`{"text":"Hi"}`))

			ev, err = r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Type).To(Equal("end"))

			ev, err = r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev).To(BeNil())
		})

		It("strips a single space after the colon", func() {
			r := NewReader(strings.NewReader("data:  two spaces\n\n"))
			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal(" two spaces"))
		})

		It("joins multiple data lines with newline", func() {
			r := NewReader(strings.NewReader("data: a\ndata: b\n\n"))
			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal("a\nb"))
		})

		It("skips comments and stray blank lines", func() {
			r := NewReader(strings.NewReader("\n\n: keep-alive\n\nid: 7\ndata: x\n\n"))
			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.ID).To(Equal("7"))
			Expect(ev.Data).To(Equal("x"))
		})

		It("returns a trailing event without a blank line", func() {
			r := NewReader(strings.NewReader("event: end\ndata: {}"))
			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Type).To(Equal("end"))
		})

		It("ignores unknown fields", func() {
			r := NewReader(strings.NewReader("retry: 1000\nfoo\ndata: y\n\n"))
			ev, err := r.Next()
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Data).To(Equal("y"))
		})

		It("surfaces read errors", func() {
			r := NewReader(io.MultiReader(strings.NewReader("data: partial\n"), failingReader{}))
			_, err := r.Next()
			Expect(err).To(MatchError("connection reset"))
		})
	})
})
