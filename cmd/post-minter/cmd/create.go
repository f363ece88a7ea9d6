package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	xrate "golang.org/x/time/rate"

	"github.com/code-payments/post-minter/pkg/config"
	"github.com/code-payments/post-minter/pkg/metadata"
	"github.com/code-payments/post-minter/pkg/metrics"
	"github.com/code-payments/post-minter/pkg/rate"
	"github.com/code-payments/post-minter/pkg/relay"
	"github.com/code-payments/post-minter/pkg/solana"
	"github.com/code-payments/post-minter/pkg/tokencreator"
	"github.com/code-payments/post-minter/pkg/wallet/keypair"
)

func newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a token sale",
		Long: `Create a token sale from explicit details (--name, --symbol, --uri) or from
the text of a post (--post). Without --uri the metadata is uploaded to
metadata_upload_url first.`,
		RunE: runCreate,
	}

	f := cmd.Flags()
	f.String("name", "", "token name")
	f.String("symbol", "", "token symbol")
	f.String("uri", "", "metadata uri")
	f.String("post", "", "post text to derive token details from")
	f.String("post-url", "", "link to the post")
	f.String("description", "", "token description")
	f.String("image", "", "image file path or data url")
	f.String("twitter", "", "twitter link")
	f.String("website", "", "website link")
	f.String("telegram", "", "telegram link")
	f.String("keypair", "", "wallet keypair file (defaults to wallet_keypair_path, then ~/.config/solana/id.json)")
	f.BoolP("yes", "y", false, "approve the transaction without prompting")

	return cmd
}

func init() {
	rootCmd.AddCommand(newCreateCmd())
}

func runCreate(cmd *cobra.Command, _ []string) error {
	ctx, conf, shutdown, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer shutdown()

	ctx, end := metrics.StartTransaction(ctx, "post-minter create")
	defer end()

	f := cmd.Flags()
	req, err := buildRequest(cmd)
	if err != nil {
		return err
	}

	keyPath, _ := f.GetString("keypair")
	key, err := keypair.LoadKeyFile(resolveKeypairPath(keyPath, conf))
	if err != nil {
		return err
	}

	approval := keypair.PromptApproval(os.Stdin, os.Stderr)
	if yes, _ := f.GetBool("yes"); yes {
		approval = keypair.AutoApprove
	}

	rpc, stop := startRelay(ctx, conf)
	defer stop()

	program, _ := conf.Program()
	lamports, _ := conf.PurchaseLamports()

	var uploader tokencreator.MetadataUploader
	if len(conf.MetadataUploadURL) > 0 {
		uploader = metadata.NewUploader(conf.MetadataUploadURL, conf.MetadataUploadTimeout)
	}

	creator := tokencreator.NewCreator(
		tokencreator.Config{
			Program:                 program,
			InitialPurchaseLamports: lamports,
			WalletApprovalTimeout:   conf.WalletApprovalTimeout,
		},
		solana.NewClient(rpc),
		keypair.NewProvider(key, keypair.WithApproval(approval)),
		uploader,
	)

	result, err := creator.Create(ctx, req)
	if err != nil {
		category := tokencreator.Classify(err)
		if category == tokencreator.CategoryTimeout {
			fmt.Fprintln(os.Stderr, "no response in time; the transaction may still land")
		}
		return errors.Wrapf(err, "%s error", category)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "signature: %s\n", result.Signature.ToBase58())
	fmt.Fprintf(cmd.OutOrStdout(), "mint:      %s\n", result.MintAddress())
	fmt.Fprintf(cmd.OutOrStdout(), "uri:       %s\n", result.MetadataURI)
	return nil
}

func buildRequest(cmd *cobra.Command) (*tokencreator.Request, error) {
	f := cmd.Flags()
	get := func(name string) string {
		v, _ := f.GetString(name)
		return v
	}

	req := &tokencreator.Request{
		Name:   get("name"),
		Symbol: get("symbol"),
		URI:    get("uri"),
	}
	description := get("description")

	if f.Changed("post") {
		details := tokencreator.DetailsFromPost(get("post"))
		if len(req.Name) == 0 {
			req.Name = details.Name
		}
		if len(req.Symbol) == 0 {
			req.Symbol = details.Symbol
		}
		if len(description) == 0 {
			description = details.Description
		}
	}

	if len(req.URI) > 0 {
		return req, nil
	}

	req.Metadata = &metadata.Request{
		Description: description,
		Links: metadata.Links{
			Twitter:  get("twitter"),
			Website:  get("website"),
			Telegram: get("telegram"),
			PostURL:  get("post-url"),
		},
	}

	if image := get("image"); len(image) > 0 {
		var err error
		if req.Metadata.Image, err = loadImage(image); err != nil {
			return nil, err
		}
	}

	return req, nil
}

func loadImage(value string) (*metadata.Image, error) {
	if strings.HasPrefix(value, "data:") {
		return metadata.ImageFromDataURL(value, "")
	}

	data, err := os.ReadFile(value)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read image")
	}
	return &metadata.Image{
		Data:     data,
		Filename: filepath.Base(value),
	}, nil
}

func resolveKeypairPath(flagValue string, conf *config.Config) string {
	if len(flagValue) > 0 {
		return flagValue
	}
	if len(conf.WalletKeypairPath) > 0 {
		return conf.WalletKeypairPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "solana", "id.json")
	}
	return filepath.Join(home, ".config", "solana", "id.json")
}

// startRelay runs the relay worker in the background and returns a client
// connected to it.
func startRelay(ctx context.Context, conf *config.Config) (*relay.Client, func()) {
	var limiter rate.Limiter = rate.NoLimiter{}
	if conf.RPCRateLimit > 0 {
		limiter = rate.NewLocalRateLimiter(xrate.Limit(conf.RPCRateLimit))
	}

	ch := relay.NewChannel(16)
	worker := relay.NewWorker(ch, relay.NewHTTPTransport(conf.RPCEndpoint, conf.RPCTimeout), limiter)
	client := relay.NewClient(ch, relay.WithTimeout(conf.RPCTimeout))

	workerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := worker.Run(workerCtx); err != nil && err != context.Canceled {
			logrus.StandardLogger().WithField("type", "cmd/post-minter").WithError(err).Warn("relay worker stopped")
		}
	}()

	return client, func() {
		_ = client.Close()
		cancel()
		ch.Close()
		<-done
	}
}
