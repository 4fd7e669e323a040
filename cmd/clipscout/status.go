package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.clipscout.dev/clipscout/internal/hub"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show connected monitors",
		Long: `Queries a running manager's HTTP status endpoint and prints the
connected monitors and the latest bundle metadata.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runStatus(v) },
	}

	f := cmd.Flags()
	f.String("addr", defaultTCPAddr, "manager TCP address")
	f.Bool("json", false, "output raw JSON")
	addConfigFlag(cmd)

	return cmd
}

func runStatus(v *viper.Viper) error {
	addr := v.GetString("addr")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s/status", addr))
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status: manager returned %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("status read: %w", err)
	}

	if v.GetBool("json") {
		fmt.Println(strings.TrimSpace(string(body)))
		return nil
	}

	var st hub.Status
	if err := json.Unmarshal(body, &st); err != nil {
		return fmt.Errorf("status decode: %w", err)
	}
	printStatus(addr, st)
	return nil
}

func printStatus(addr string, st hub.Status) {
	w := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Manager:\t%s\n", addr)
	fmt.Fprintf(w, "Up since:\t%s (%s)\n", st.StartedAt.UTC().Format(time.RFC3339), fmtAge(st.StartedAt))
	if st.LatestSource != "" {
		fmt.Fprintf(w, "Latest:\t%s from %s\n", strings.Join(st.LatestMIMEs, ","), st.LatestSource)
	}
	fmt.Fprintln(w)
	_ = w.Flush()

	if len(st.Sessions) == 0 {
		fmt.Println("No monitors connected.")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "SOURCE\tADDR\tCONNECTED\tLAST SEEN\n")
	_, _ = fmt.Fprintf(tw, "------\t----\t---------\t---------\n")
	for _, s := range st.Sessions {
		source := s.Source
		if source == "" {
			source = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			source, s.Addr, fmtAge(s.ConnectedAt), fmtAge(s.LastSeen))
	}
	_ = tw.Flush()
}

func fmtAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	age := time.Since(t).Round(time.Second)
	if age < time.Minute {
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	}
	if age < time.Hour {
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	}
	return t.Format("15:04:05")
}
