// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package protostream

import (
	"bytes"
	"io"
	"testing"

	"github.com/danjacques/netcompress/support/dataio"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes/empty"
	"github.com/golang/protobuf/ptypes/struct"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("End-to-End Encode/Decode", func() {
	p0 := structpb.Struct{
		Fields: map[string]*structpb.Value{
			"role": {Kind: &structpb.Value_StringValue{StringValue: "server"}},
		},
	}

	It("can encode and then decode protobufs", func() {
		var buf bytes.Buffer
		var enc Encoder

		amt0, err := enc.Write(&buf, &p0)
		Expect(err).ToNot(HaveOccurred())
		amt1, err := enc.Write(&buf, &empty.Empty{})
		Expect(err).ToNot(HaveOccurred())
		Expect(amt1).To(Equal(1))

		var dec Decoder
		dr := dataio.MakeReader(bytes.NewReader(buf.Bytes()))

		var s structpb.Struct
		n, err := dec.Read(dr, &s)
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(int64(amt0)))
		Expect(proto.Equal(&s, &p0)).To(BeTrue())

		n, err = dec.Read(dr, &empty.Empty{})
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(int64(1)))

		_, err = dec.Read(dr, &empty.Empty{})
		Expect(err).To(Equal(io.EOF))
	})

	It("rejects messages over MaxSize", func() {
		var buf bytes.Buffer
		var enc Encoder
		_, err := enc.Write(&buf, &p0)
		Expect(err).ToNot(HaveOccurred())

		dec := Decoder{MaxSize: 2}
		_, err = dec.Read(dataio.MakeReader(&buf), &structpb.Struct{})
		Expect(err).To(Equal(ErrTooLarge))
	})

	It("reports truncated messages", func() {
		var buf bytes.Buffer
		var enc Encoder
		_, err := enc.Write(&buf, &p0)
		Expect(err).ToNot(HaveOccurred())

		data := buf.Bytes()[:buf.Len()-1]
		var dec Decoder
		_, err = dec.Read(dataio.MakeReader(bytes.NewReader(data)), &structpb.Struct{})
		Expect(err).To(Equal(io.ErrUnexpectedEOF))
	})
})

func TestProtoStream(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Testing protostream")
}
