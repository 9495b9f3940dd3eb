// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package codec

import (
	"bytes"
	"math/rand"
	"runtime"
	"testing"

	"github.com/pkg/errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func makeGamePacket(rng *rand.Rand, n int) []byte {
	// Packets share a structured prefix with a little noise, like replicated
	// actor state.
	pkt := make([]byte, n)
	for i := range pkt {
		pkt[i] = byte(i % 16)
	}
	for i := 0; i < n/8; i++ {
		pkt[rng.Intn(n)] = byte(rng.Intn(256))
	}
	return pkt
}

var _ = Describe("Codec", func() {
	var sw *SharedWindow
	var enc, dec *State
	var rng *rand.Rand

	BeforeEach(func() {
		rng = rand.New(rand.NewSource(1337))

		dictionary := bytes.Repeat([]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}, 512)
		sw = NewSharedWindow(dictionary, 4096)

		seed := NewState([]byte("seed state"))
		enc, dec = seed.Clone(), seed.Clone()
	})

	It("clamps the history size to the window", func() {
		big := NewSharedWindow(make([]byte, 2*WindowSize), 1<<20)
		Expect(big.HistorySize()).To(Equal(WindowSize))
		Expect(big.Len()).To(BeZero())

		Expect(sw.HistorySize()).To(Equal(4096))
		Expect(sw.Len()).To(Equal(8192))
	})

	It("round-trips a sequence of packets", func() {
		for i := 0; i < 64; i++ {
			pkt := makeGamePacket(rng, 1+rng.Intn(1200))

			compressed := Encode(nil, enc, sw, pkt)
			Expect(len(compressed)).To(BeNumerically("<=", EncodeBound(len(pkt))))

			out, err := Decode(nil, dec, sw, compressed, len(pkt))
			Expect(err).ToNot(HaveOccurred())
			Expect(out).To(Equal(pkt))
		}

		Expect(enc.History()).To(Equal(dec.History()))
		Expect(enc.Len()).To(Equal(sw.HistorySize()))
	})

	It("round-trips an empty packet", func() {
		compressed := Encode(nil, enc, sw, nil)
		out, err := Decode(nil, dec, sw, compressed, 0)
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(BeEmpty())
	})

	It("stays within its bound for incompressible input", func() {
		pkt := make([]byte, 16382)
		rng.Read(pkt)

		compressed := Encode(nil, enc, sw, pkt)
		Expect(len(compressed)).To(BeNumerically("<=", EncodeBound(len(pkt))))
	})

	It("appends to dst", func() {
		compressed := Encode([]byte{0xAA}, enc, sw, []byte("hello"))
		Expect(compressed[0]).To(Equal(byte(0xAA)))

		out, err := Decode([]byte{0xBB}, dec, sw, compressed[1:], 5)
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(Equal([]byte("\xBBhello")))
	})

	It("is deterministic given identical state", func() {
		other := enc.Clone()
		pkt := makeGamePacket(rng, 300)
		Expect(Encode(nil, enc, sw, pkt)).To(Equal(Encode(nil, other, sw, pkt)))
	})

	It("produces identical streams from cloned states", func() {
		other := enc.Clone()
		packets := make([][]byte, 50)
		for i := range packets {
			packets[i] = makeGamePacket(rng, 1+rng.Intn(1200))
		}

		var first [][]byte
		for _, pkt := range packets {
			first = append(first, Encode(nil, enc, sw, pkt))
		}
		for i, pkt := range packets {
			Expect(Encode(nil, other, sw, pkt)).To(Equal(first[i]), "packet #%d differs", i)
		}

		By("decoding the stream from a fresh state")
		for i, pkt := range packets {
			out, err := Decode(nil, dec, sw, first[i], len(pkt))
			Expect(err).ToNot(HaveOccurred())
			Expect(out).To(Equal(pkt))
		}
	})

	It("reuses its compressor between packets", func() {
		const rounds = 200
		pkt := makeGamePacket(rng, 100)
		dst := make([]byte, 0, EncodeBound(len(pkt)))

		// Warm up the State's scratch space.
		Encode(dst, enc, sw, pkt)

		var before, after runtime.MemStats
		runtime.ReadMemStats(&before)
		for i := 0; i < rounds; i++ {
			Encode(dst, enc, sw, pkt)
		}
		runtime.ReadMemStats(&after)

		perPacket := (after.TotalAlloc - before.TotalAlloc) / rounds
		Expect(perPacket).To(BeNumerically("<", 32*1024))
	})

	It("compresses repetitive traffic better as history builds", func() {
		pkt := makeGamePacket(rng, 400)
		first := Encode(nil, enc, sw, pkt)
		second := Encode(nil, enc, sw, pkt)
		Expect(len(second)).To(BeNumerically("<", len(first)))
	})

	Context("failures", func() {
		var pkt, compressed []byte
		BeforeEach(func() {
			pkt = makeGamePacket(rng, 200)
			compressed = Encode(nil, enc, sw, pkt)
		})

		It("rejects a wrong expected length without advancing state", func() {
			before := append([]byte(nil), dec.History()...)

			_, err := Decode(nil, dec, sw, compressed, len(pkt)-1)
			Expect(errors.Cause(err)).To(Equal(ErrCorrupt))

			_, err = Decode(nil, dec, sw, compressed, len(pkt)+1)
			Expect(errors.Cause(err)).To(Equal(ErrCorrupt))
			Expect(dec.History()).To(Equal(before))

			By("still decoding the packet correctly afterwards")
			out, err := Decode(nil, dec, sw, compressed, len(pkt))
			Expect(err).ToNot(HaveOccurred())
			Expect(out).To(Equal(pkt))
		})

		It("rejects truncated input", func() {
			_, err := Decode(nil, dec, sw, compressed[:len(compressed)/2], len(pkt))
			Expect(errors.Cause(err)).To(Equal(ErrCorrupt))
		})

		It("rejects empty input", func() {
			_, err := Decode(nil, dec, sw, nil, 0)
			Expect(errors.Cause(err)).To(Equal(ErrCorrupt))
		})
	})
})

func TestCodec(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Testing codec")
}
