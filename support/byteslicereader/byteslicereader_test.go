// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package byteslicereader

import (
	"io"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("R", func() {
	var r *R

	BeforeEach(func() {
		r = &R{}
	})

	Context("Read", func() {
		Context("with no data", func() {
			It("should read 0 bytes and return EOF", func() {
				v, err := r.Read(make([]byte, 16))
				Expect(v).To(Equal(0))
				Expect(err).To(Equal(io.EOF))
			})
		})

		Context("with a partial read buffer", func() {
			BeforeEach(func() {
				r.Buffer = []byte{0, 1, 2, 3}
			})

			It("reads part of the buffer on first read, remainder on second", func() {
				buf := make([]byte, 3)

				v, err := r.Read(buf)
				Expect(err).ToNot(HaveOccurred())
				Expect(buf[:v]).To(Equal([]byte{0, 1, 2}))

				v, err = r.Read(buf)
				Expect(err).ToNot(HaveOccurred())
				Expect(buf[:v]).To(Equal([]byte{3}))

				_, err = r.Read(buf)
				Expect(err).To(Equal(io.EOF))
			})
		})
	})

	Context("ReadByte", func() {
		It("should read the data, then return EOF", func() {
			r.Buffer = []byte{0, 1}

			v, err := r.ReadByte()
			Expect(err).ToNot(HaveOccurred())
			Expect(v).To(Equal(byte(0)))

			v, err = r.ReadByte()
			Expect(err).ToNot(HaveOccurred())
			Expect(v).To(Equal(byte(1)))
			Expect(r.Pos()).To(Equal(2))

			_, err = r.ReadByte()
			Expect(err).To(Equal(io.EOF))
		})
	})

	Context("Next", func() {
		BeforeEach(func() {
			r.Buffer = []byte{0, 1, 2, 3}
		})

		It("returns subslices of the underlying buffer", func() {
			buf, err := r.Next(2)
			Expect(err).ToNot(HaveOccurred())
			Expect(buf).To(Equal([]byte{0, 1}))
			Expect(&buf[0]).To(BeIdenticalTo(&r.Buffer[0]))
			Expect(r.Remaining()).To(Equal(2))
		})

		It("returns what it can and ErrUnexpectedEOF when short", func() {
			_, err := r.Next(1)
			Expect(err).ToNot(HaveOccurred())

			buf, err := r.Next(1337)
			Expect(err).To(Equal(io.ErrUnexpectedEOF))
			Expect(buf).To(Equal([]byte{1, 2, 3}))
			Expect(r.Remaining()).To(BeZero())
		})

		It("returns everything left with Rest", func() {
			_, _ = r.ReadByte()
			Expect(r.Rest()).To(Equal([]byte{1, 2, 3}))
			Expect(r.Rest()).To(BeEmpty())
		})
	})

	It("maintains state when copied", func() {
		r.Buffer = []byte{1, 2, 3, 4}
		_, _ = r.Next(2)
		clone := *r

		b, err := r.ReadByte()
		Expect(err).ToNot(HaveOccurred())
		Expect(b).To(Equal(byte(3)))

		b, err = clone.ReadByte()
		Expect(err).ToNot(HaveOccurred())
		Expect(b).To(Equal(byte(3)))
	})
})

func TestR(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Testing a byteslicereader.R")
}
