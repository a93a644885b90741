package pub

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2" //nolint:revive
	. "github.com/onsi/gomega"    //nolint:revive

	"github.com/dartci/pubrel/internal/toolexec"
)

type recordedCall struct {
	cmd   toolexec.Command
	stdin string
	// keyExisted records whether an activate-service-account key file was present at call time.
	keyExisted bool
}

type fakeRunner struct {
	calls  []recordedCall
	output []byte
	failOn string
}

func (f *fakeRunner) record(cmd toolexec.Command, stdin io.Reader) error {
	call := recordedCall{cmd: cmd}
	if stdin != nil {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return err
		}
		call.stdin = string(data)
	}
	for _, arg := range cmd.Args {
		if path, ok := strings.CutPrefix(arg, "--key-file="); ok {
			_, err := os.Stat(path)
			call.keyExisted = err == nil
		}
	}
	f.calls = append(f.calls, call)
	if f.failOn != "" && strings.Contains(cmd.String(), f.failOn) {
		return errors.New("tool failed")
	}
	return nil
}

func (f *fakeRunner) Run(_ context.Context, cmd toolexec.Command, stdin io.Reader) error {
	return f.record(cmd, stdin)
}

func (f *fakeRunner) Output(_ context.Context, cmd toolexec.Command) ([]byte, error) {
	if err := f.record(cmd, nil); err != nil {
		return nil, err
	}
	return f.output, nil
}

func (f *fakeRunner) commands() []string {
	var out []string
	for _, c := range f.calls {
		out = append(out, c.cmd.String())
	}
	return out
}

func signedToken(audience string, expires time.Time) string {
	claims := jwt.RegisteredClaims{
		Subject:   "ci@demo.iam.gserviceaccount.com",
		Audience:  jwt.ClaimStrings{audience},
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	Expect(err).NotTo(HaveOccurred())
	return token
}

const keyBlob = `{"type":"service_account","project_id":"demo","client_email":"ci@demo.iam.gserviceaccount.com"}`

var _ = Describe("Client", func() {
	var (
		ctx    context.Context
		runner *fakeRunner
		keyDir string
	)

	BeforeEach(func() {
		ctx = context.Background()
		keyDir = GinkgoT().TempDir()
		runner = &fakeRunner{output: []byte(signedToken(DefaultAudience, time.Now().Add(time.Hour)) + "\n")}
	})

	keyDirEntries := func() []os.DirEntry {
		entries, err := os.ReadDir(keyDir)
		Expect(err).NotTo(HaveOccurred())
		return entries
	}

	Describe("Login", func() {
		It("activates the account and pipes the token into dart", func() {
			client := New(runner)
			Expect(client.Login(ctx, keyBlob, keyDir)).To(Succeed())

			Expect(runner.calls).To(HaveLen(3))
			Expect(runner.calls[0].cmd.Name).To(Equal("gcloud"))
			Expect(runner.calls[0].cmd.Args[:2]).To(Equal([]string{"auth", "activate-service-account"}))
			Expect(runner.calls[0].keyExisted).To(BeTrue())
			Expect(runner.commands()[1]).To(Equal("gcloud auth print-identity-token --audiences=https://pub.dev"))
			Expect(runner.commands()[2]).To(Equal("dart pub token add https://pub.dev"))
			Expect(runner.calls[2].stdin).To(Equal(strings.TrimSpace(string(runner.output)) + "\n"))

			Expect(keyDirEntries()).To(BeEmpty())
		})

		It("uses the configured binaries and registry", func() {
			runner.output = []byte(signedToken("https://pub.example.com", time.Now().Add(time.Hour)))
			client := New(runner,
				WithGcloud("/opt/gcloud/bin/gcloud"),
				WithDart("/opt/dart/bin/dart"),
				WithAudience("https://pub.example.com"),
				WithRegistry("https://pub.example.com/"),
			)
			Expect(client.Login(ctx, keyBlob, keyDir)).To(Succeed())

			Expect(runner.commands()[1]).To(Equal("/opt/gcloud/bin/gcloud auth print-identity-token --audiences=https://pub.example.com"))
			Expect(runner.commands()[2]).To(Equal("/opt/dart/bin/dart pub token add https://pub.example.com"))
		})

		It("removes the key file when activation fails", func() {
			runner.failOn = "activate-service-account"
			client := New(runner)

			err := client.Login(ctx, keyBlob, keyDir)
			Expect(err).To(MatchError(ContainSubstring("failed to activate service account")))
			Expect(runner.calls).To(HaveLen(1))
			Expect(keyDirEntries()).To(BeEmpty())
		})

		It("does not run dart when the token is for another audience", func() {
			runner.output = []byte(signedToken("https://other.example", time.Now().Add(time.Hour)))
			client := New(runner)

			err := client.Login(ctx, keyBlob, keyDir)
			Expect(err).To(MatchError(ContainSubstring("audience")))
			Expect(runner.commands()).NotTo(ContainElement(HavePrefix("dart")))
			Expect(keyDirEntries()).To(BeEmpty())
		})

		It("does not run dart when the token is expired", func() {
			runner.output = []byte(signedToken(DefaultAudience, time.Now().Add(-time.Minute)))
			client := New(runner)

			err := client.Login(ctx, keyBlob, keyDir)
			Expect(err).To(MatchError(ContainSubstring("expired")))
			Expect(runner.commands()).NotTo(ContainElement(HavePrefix("dart")))
		})

		It("rejects an invalid credential blob before running any tool", func() {
			client := New(runner)

			Expect(client.Login(ctx, "not json", keyDir)).NotTo(Succeed())
			Expect(runner.calls).To(BeEmpty())
			Expect(keyDirEntries()).To(BeEmpty())
		})

		It("rejects an empty identity token", func() {
			runner.output = []byte("\n")
			client := New(runner)

			Expect(client.Login(ctx, keyBlob, keyDir)).To(MatchError(ContainSubstring("empty identity token")))
		})
	})

	Describe("Publish", func() {
		It("forces the upload", func() {
			client := New(runner)
			Expect(client.Publish(ctx, PublishOptions{Dir: "pkg"})).To(Succeed())

			Expect(runner.calls).To(HaveLen(1))
			Expect(runner.commands()[0]).To(Equal("dart pub publish --force"))
			Expect(runner.calls[0].cmd.Dir).To(Equal("pkg"))
			Expect(runner.calls[0].cmd.Env).To(BeEmpty())
		})

		It("supports a dry run", func() {
			client := New(runner)
			Expect(client.Publish(ctx, PublishOptions{DryRun: true})).To(Succeed())
			Expect(runner.commands()[0]).To(Equal("dart pub publish --dry-run"))
		})

		It("points dart at a custom registry", func() {
			client := New(runner, WithRegistry("https://pub.example.com"))
			Expect(client.Publish(ctx, PublishOptions{})).To(Succeed())
			Expect(runner.calls[0].cmd.Env).To(ConsistOf("PUB_HOSTED_URL=https://pub.example.com"))
		})

		It("wraps tool failures", func() {
			runner.failOn = "publish"
			client := New(runner)
			Expect(client.Publish(ctx, PublishOptions{})).To(MatchError(ContainSubstring("failed to publish package")))
		})
	})
})
