// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package commandlet

import (
	"bytes"
	"io/ioutil"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danjacques/netcompress/capture"
	"github.com/danjacques/netcompress/config"
	"github.com/danjacques/netcompress/dictionary"
	"github.com/danjacques/netcompress/support/logging"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("netcompress tool", func() {
	var tdir string
	var stdout bytes.Buffer

	BeforeEach(func() {
		var err error
		tdir, err = ioutil.TempDir("", "commandlet_test")
		Expect(err).ToNot(HaveOccurred())
		stdout.Reset()
	})

	AfterEach(func() {
		if tdir != "" {
			_ = os.RemoveAll(tdir)
			tdir = ""
		}
	})

	runWithInput := func(stdin string, args ...string) int {
		return run(args, strings.NewReader(stdin), &stdout, logging.Nop)
	}
	runTool := func(args ...string) int { return runWithInput("", args...) }

	writeCapture := func(name, role string, dir capture.Direction, packets [][]byte) string {
		path := filepath.Join(tdir, name)
		w, err := capture.Create(path, capture.NewMetadata(role, dir))
		Expect(err).ToNot(HaveOccurred())
		for _, p := range packets {
			Expect(w.SerializePacket(p)).To(Succeed())
		}
		Expect(w.Close()).To(Succeed())
		return path
	}

	trafficPackets := func(seed int64, n int) [][]byte {
		rng := rand.New(rand.NewSource(seed))
		packets := make([][]byte, n)
		for i := range packets {
			p := make([]byte, 16+rng.Intn(256))
			for j := range p {
				if j%6 == 0 {
					p[j] = byte(rng.Intn(256))
				} else {
					p[j] = byte(j)
				}
			}
			packets[i] = p
		}
		return packets
	}

	It("builds zap loggers", func() {
		for _, verbose := range []bool{false, true} {
			l, err := newZapLogger(verbose)
			Expect(err).ToNot(HaveOccurred())
			l.Sugar().Debugf("test %d", 1)
		}
	})

	It("fails on unknown commands and missing arguments", func() {
		Expect(runTool()).To(Equal(failure))
		Expect(runTool("bogus")).To(Equal(failure))
		Expect(runTool("merge", "only-output")).To(Equal(failure))
		Expect(stdout.String()).To(ContainSubstring("Commands:"))
	})

	It("enables netcompress in the settings file", func() {
		cfgPath := filepath.Join(tdir, "netcompress.yaml")
		Expect(runTool("--config", cfgPath, "enable", "--mode", "training")).To(Equal(success))

		store, err := config.Open(cfgPath)
		Expect(err).ToNot(HaveOccurred())
		settings := config.LoadSettings(store)
		Expect(settings.Enabled).To(BeTrue())
		Expect(settings.Mode).To(Equal("Capturing"))
		Expect(settings.ServerDictionary).To(Equal(config.DefaultServerDictionary))
		Expect(settings.UseDictionaryIfPresent).To(BeTrue())
	})

	Context("merge", func() {
		var a, b, out string
		BeforeEach(func() {
			a = writeCapture("a"+capture.FileExt, "Server", capture.DirectionIncoming, trafficPackets(1, 3))
			b = writeCapture("b"+capture.FileExt, "Server", capture.DirectionIncoming, trafficPackets(2, 4))
			out = filepath.Join(tdir, "merged.out")
		})

		It("merges comma-separated inputs", func() {
			Expect(runTool("merge", out, a+","+b)).To(Equal(success))

			r, err := capture.Open(out)
			Expect(err).ToNot(HaveOccurred())
			Expect(r.Metadata().Sources).To(HaveLen(2))
			Expect(r.Close()).To(Succeed())
		})

		It("merges a whole directory", func() {
			Expect(runTool("merge", out, "all", tdir)).To(Equal(success))
		})

		It("requires confirmation to overwrite", func() {
			Expect(runTool("merge", out, a+","+b)).To(Equal(success))

			Expect(runTool("--unattended", "merge", out, a+","+b)).To(Equal(failure))
			Expect(runWithInput("n\n", "merge", out, a+","+b)).To(Equal(failure))
			Expect(runWithInput("y\n", "merge", out, a+","+b)).To(Equal(success))
			Expect(runTool("--unattended", "merge", "--overwrite", out, a+","+b)).To(Equal(success))
		})

		It("fails with a single input", func() {
			Expect(runTool("merge", out, a)).To(Equal(failure))
			_, err := os.Stat(out)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})

	It("dumps captures", func() {
		path := writeCapture("dump"+capture.FileExt, "Client", capture.DirectionOutgoing,
			[][]byte{{0x01, 0x02}, {0xFF}})
		Expect(runTool("dump", path)).To(Equal(success))
		Expect(stdout.String()).To(ContainSubstring("Role: Client"))
		Expect(stdout.String()).To(ContainSubstring("[2]byte{0x01, 0x02}"))
		Expect(stdout.String()).To(ContainSubstring("2 packet(s), 3 byte(s)"))
	})

	It("dumps whole packets or a prefix", func() {
		big := make([]byte, 40)
		for i := range big {
			big[i] = byte(i)
		}
		path := writeCapture("dump"+capture.FileExt, "Server", capture.DirectionIncoming, [][]byte{big})

		Expect(runTool("dump", "--hex", "2", path)).To(Equal(success))
		Expect(stdout.String()).To(ContainSubstring("[40]byte{0x00, 0x01, ...38 more}"))

		stdout.Reset()
		Expect(runTool("dump", "--hex=-1", path)).To(Equal(success))
		Expect(stdout.String()).To(ContainSubstring("0x26, 0x27}"))
		Expect(stdout.String()).ToNot(ContainSubstring("more}"))
	})

	It("fails to dump a truncated capture", func() {
		path := writeCapture("dump"+capture.FileExt, "Client", capture.DirectionOutgoing, [][]byte{{0x01, 0x02}})
		data, err := ioutil.ReadFile(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(ioutil.WriteFile(path, data[:len(data)-1], 0644)).To(Succeed())

		Expect(runTool("dump", path)).To(Equal(failure))
	})

	It("trains and evaluates dictionaries", func() {
		serverOut := writeCapture("out"+capture.FileExt, "Server", capture.DirectionOutgoing, trafficPackets(3, 200))
		serverIn := writeCapture("in"+capture.FileExt, "Server", capture.DirectionIncoming, trafficPackets(4, 200))

		serverDict := filepath.Join(tdir, "Server"+dictionary.FileExt)
		clientDict := filepath.Join(tdir, "Client"+dictionary.FileExt)
		Expect(runTool("build-dictionary", "--hash-table-size", "4096", serverDict, serverOut)).To(Equal(success))
		Expect(runTool("build-dictionary", clientDict, serverIn)).To(Equal(success))

		d, err := dictionary.ReadFile(serverDict)
		Expect(err).ToNot(HaveOccurred())
		Expect(d.HashTableSize()).To(Equal(uint32(4096)))

		stdout.Reset()
		Expect(runTool("evaluate", serverDict, clientDict, serverOut, serverIn)).To(Equal(success))
		Expect(stdout.String()).To(ContainSubstring("All captures"))
		Expect(stdout.String()).To(ContainSubstring("% saved"))

		// Relative dictionary paths resolve against the content root.
		Expect(runTool("--content-root", tdir, "evaluate", filepath.Base(serverDict), filepath.Base(clientDict),
			serverOut)).To(Equal(success))
	})

	It("fails to build a dictionary without packets", func() {
		empty := writeCapture("empty"+capture.FileExt, "Server", capture.DirectionOutgoing, nil)
		Expect(runTool("build-dictionary", filepath.Join(tdir, "x"+dictionary.FileExt), empty)).To(Equal(failure))
	})
})

func TestCommandlet(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Testing commandlet")
}
