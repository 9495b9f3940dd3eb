// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package dataio

import (
	"bytes"
	"io"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// onlyReader hides any io.ByteReader implementation of its base.
type onlyReader struct{ io.Reader }

var _ = Describe("uint32 values", func() {
	It("round-trips through a buffer", func() {
		var buf bytes.Buffer
		Expect(WriteUint32(&buf, 0xDEADBEEF)).To(Succeed())
		Expect(buf.Bytes()).To(Equal([]byte{0xEF, 0xBE, 0xAD, 0xDE}))

		v, err := ReadUint32(&buf)
		Expect(err).ToNot(HaveOccurred())
		Expect(v).To(Equal(uint32(0xDEADBEEF)))
	})

	It("returns io.EOF on an empty stream", func() {
		_, err := ReadUint32(bytes.NewReader(nil))
		Expect(err).To(Equal(io.EOF))
	})

	It("returns io.ErrUnexpectedEOF on a partial value", func() {
		_, err := ReadUint32(bytes.NewReader([]byte{1, 2}))
		Expect(err).To(Equal(io.ErrUnexpectedEOF))
	})
})

var _ = Describe("MakeReader", func() {
	It("reads individual bytes from a plain io.Reader", func() {
		r := MakeReader(onlyReader{bytes.NewReader([]byte{7, 8})})

		b, err := r.ReadByte()
		Expect(err).ToNot(HaveOccurred())
		Expect(b).To(Equal(byte(7)))

		b, err = r.ReadByte()
		Expect(err).ToNot(HaveOccurred())
		Expect(b).To(Equal(byte(8)))

		_, err = r.ReadByte()
		Expect(err).To(Equal(io.EOF))
	})

	It("returns readers that already read bytes unchanged", func() {
		br := bytes.NewReader(nil)
		Expect(MakeReader(br)).To(BeIdenticalTo(br))
	})
})

func TestDataIO(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Testing dataio")
}
