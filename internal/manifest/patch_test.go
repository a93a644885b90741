package manifest

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2" //nolint:revive
	. "github.com/onsi/gomega"    //nolint:revive
)

const pubspec = `name: example_pkg
description: An example package.
version: 0.1.0
homepage: https://example.com

environment:
  sdk: ">=3.0.0 <4.0.0"

dependencies:
  meta: ^1.9.0  
`

var _ = Describe("Patcher", func() {
	var (
		dir  string
		path string
	)

	writeManifest := func(content string) {
		Expect(os.WriteFile(path, []byte(content), 0640)).To(Succeed())
	}
	readManifest := func() string {
		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		return string(data)
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		path = filepath.Join(dir, "pubspec.yaml")
	})

	It("replaces only the matching line", func() {
		writeManifest(pubspec)

		result, err := NewPatcher(path, "version").Patch("v1.2.3")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Index).To(Equal(2))
		Expect(result.Changed).To(BeTrue())

		before := SplitLines(pubspec)
		after := SplitLines(readManifest())
		Expect(after).To(HaveLen(len(before)))
		for i := range before {
			if i == 2 {
				Expect(after[i]).To(Equal("version: \"1.2.3\"\n"))
				continue
			}
			Expect(after[i]).To(Equal(before[i]))
		}
	})

	It("replaces only the first occurrence", func() {
		writeManifest("a: 1\nversion: 1\nb: 2\nversion: 2\n")

		_, err := NewPatcher(path, "version").Patch("3.0.0")
		Expect(err).NotTo(HaveOccurred())
		Expect(readManifest()).To(Equal("a: 1\nversion: \"3.0.0\"\nb: 2\nversion: 2\n"))
	})

	It("matches the key as a case-sensitive substring", func() {
		writeManifest("Version: 1\nsdk_version: 2\n")

		_, err := NewPatcher(path, "version").Patch("4.0.0")
		Expect(err).NotTo(HaveOccurred())
		Expect(readManifest()).To(Equal("Version: 1\nversion: \"4.0.0\"\n"))
	})

	It("strips the v prefix and surrounding whitespace", func() {
		writeManifest("version: 0.0.1\n")

		result, err := NewPatcher(path, "version").Patch("  v2.0.0  ")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Line).To(Equal(`version: "2.0.0"`))
		Expect(readManifest()).To(Equal("version: \"2.0.0\"\n"))
	})

	It("leaves the file untouched when the key is missing", func() {
		writeManifest(pubspec)

		_, err := NewPatcher(path, "release").Patch("v1.0.0")
		Expect(err).To(MatchError(ErrKeyNotFound))
		Expect(err.Error()).To(ContainSubstring(path))
		Expect(readManifest()).To(Equal(pubspec))

		entries, err := os.ReadDir(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
	})

	It("fails with key not found on an empty file", func() {
		writeManifest("")

		_, err := NewPatcher(path, "version").Patch("v1.0.0")
		Expect(err).To(MatchError(ErrKeyNotFound))
		Expect(readManifest()).To(BeEmpty())
	})

	It("rejects an empty key without touching the file", func() {
		writeManifest(pubspec)

		_, err := NewPatcher(path, "").Patch("v1.0.0")
		Expect(err).To(HaveOccurred())
		Expect(readManifest()).To(Equal(pubspec))
	})

	It("returns an error for a missing file", func() {
		_, err := NewPatcher(filepath.Join(dir, "missing.yaml"), "version").Patch("v1.0.0")
		Expect(err).To(MatchError(os.ErrNotExist))
	})

	It("is idempotent", func() {
		writeManifest(pubspec)
		patcher := NewPatcher(path, "version")

		_, err := patcher.Patch("v1.2.3")
		Expect(err).NotTo(HaveOccurred())
		once := readManifest()

		result, err := patcher.Patch("v1.2.3")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Changed).To(BeFalse())
		Expect(readManifest()).To(Equal(once))
	})

	It("keeps CRLF terminators", func() {
		writeManifest("name: x\r\nversion: 1.0.0\r\n")

		_, err := NewPatcher(path, "version").Patch("v1.0.1")
		Expect(err).NotTo(HaveOccurred())
		Expect(readManifest()).To(Equal("name: x\r\nversion: \"1.0.1\"\r\n"))
	})

	It("terminates a final unterminated line", func() {
		writeManifest("name: x\nversion: 1.0.0")

		_, err := NewPatcher(path, "version").Patch("v1.0.1")
		Expect(err).NotTo(HaveOccurred())
		Expect(readManifest()).To(Equal("name: x\nversion: \"1.0.1\"\n"))
	})

	It("patches the target of a symlinked manifest", func() {
		target := filepath.Join(dir, "real.yaml")
		Expect(os.WriteFile(target, []byte("version: 0.1.0\n"), 0644)).To(Succeed())
		Expect(os.Symlink(target, path)).To(Succeed())

		_, err := NewPatcher(path, "version").Patch("v1.0.0")
		Expect(err).NotTo(HaveOccurred())

		data, err := os.ReadFile(target)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("version: \"1.0.0\"\n"))

		info, err := os.Lstat(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode() & os.ModeSymlink).NotTo(BeZero())
	})

	It("preserves the file mode", func() {
		writeManifest(pubspec)
		Expect(os.Chmod(path, 0640)).To(Succeed())

		_, err := NewPatcher(path, "version").Patch("v1.2.3")
		Expect(err).NotTo(HaveOccurred())

		info, err := os.Stat(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0640)))
	})
})

var _ = Describe("ReplaceFirst", func() {
	It("does not modify its input", func() {
		lines := []string{"a\n", "version: 1\n", "b\n"}
		out, idx, err := ReplaceFirst(lines, "version", "version: \"2\"\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(idx).To(Equal(1))
		Expect(out).To(Equal([]string{"a\n", "version: \"2\"\n", "b\n"}))
		Expect(lines[1]).To(Equal("version: 1\n"))
	})

	It("reports a missing key", func() {
		_, idx, err := ReplaceFirst([]string{"a\n"}, "version", "x")
		Expect(err).To(MatchError(ErrKeyNotFound))
		Expect(idx).To(Equal(-1))
	})
})

var _ = Describe("ReadField", func() {
	It("reads a top-level scalar", func() {
		path := filepath.Join(GinkgoT().TempDir(), "pubspec.yaml")
		Expect(os.WriteFile(path, []byte(pubspec), 0644)).To(Succeed())

		value, err := ReadField(path, "version")
		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal("0.1.0"))

		value, err = ReadField(path, "publish_to")
		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(BeEmpty())

		_, err = ReadField(path, "environment")
		Expect(err).To(HaveOccurred())
	})
})
