// dogewatch-cli is a command-line client for interacting with a dogewatchd node.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dogewatch/dogewatch-core/internal/rpc"
	"github.com/dogewatch/dogewatch-core/internal/rpcclient"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	rpcURL := "http://127.0.0.1:8545"

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	client := rpcclient.New(rpcURL)
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "status":
		cmdStatus(client)
	case "wallet":
		cmdWallet(client, cmdArgs)
	case "case":
		cmdCase(client, cmdArgs)
	case "treasury":
		cmdTreasury(client)
	case "tx":
		cmdTx(client, cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: dogewatch-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         RPC endpoint (default: http://127.0.0.1:8545)

Commands:
  status                          Show node status

  wallet create <user>            Create a custodial wallet for a user
  wallet show <user>              Show a user's wallet
  wallet sync <user>              Reconcile a wallet against the chain
  wallet history <user> [--limit <n>]
                                  Show recent ledger entries
  wallet withdraw --user <u> --to <addr> --amount <doge>
                                  Withdraw to an external address

  case open --submitter <u> --bounty <doge> --desc <text> [--evidence <file.json>]
                                  Open a case with a bounty
  case show <id>                  Show a case and its votes
  case list [--status <s>]        List cases (open, resolving, verified,
                                  rejected, disputed)
  case vote --case <id> --voter <u> --choice <valid|invalid> --stake <doge>
                                  Stake on a verdict
  case resolve <id>               Settle a case whose window has closed
  case pending                    List cases awaiting resolution

  treasury                        Show the platform treasury wallet
  tx <hash>                       Show on-chain confirmation state
`)
}

// ── status ──────────────────────────────────────────────────────────────

func cmdStatus(client *rpcclient.Client) {
	info, err := client.NodeInfo()
	if err != nil {
		fatal("node_getInfo: %v", err)
	}

	fmt.Printf("Version:    %s\n", info.Version)
	fmt.Printf("Network:    %s\n", info.Network)
	fmt.Printf("Treasury:   %s (%s DOGE)\n", info.TreasuryAddress, info.TreasuryBalance.Doge)
	fmt.Printf("Open cases: %d\n", info.OpenCases)
	fmt.Printf("Uptime:     %s\n", (time.Duration(info.UptimeSeconds) * time.Second).String())
}

// ── wallet ──────────────────────────────────────────────────────────────

func cmdWallet(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: dogewatch-cli wallet <create|show|sync|history|withdraw> ...")
	}

	switch args[0] {
	case "create":
		if len(args) < 2 {
			fatal("Usage: dogewatch-cli wallet create <user>")
		}
		w, err := client.WalletCreate(args[1])
		if err != nil {
			fatal("wallet_create: %v", err)
		}
		printWallet(w)

	case "show":
		if len(args) < 2 {
			fatal("Usage: dogewatch-cli wallet show <user>")
		}
		w, err := client.WalletGet(args[1])
		if err != nil {
			fatal("wallet_get: %v", err)
		}
		printWallet(w)

	case "sync":
		if len(args) < 2 {
			fatal("Usage: dogewatch-cli wallet sync <user>")
		}
		w, err := client.WalletSync(args[1])
		if err != nil {
			fatal("wallet_sync: %v", err)
		}
		printWallet(w)

	case "history":
		if len(args) < 2 {
			fatal("Usage: dogewatch-cli wallet history <user> [--limit <n>]")
		}
		user := args[1]
		fs := flag.NewFlagSet("history", flag.ExitOnError)
		limit := fs.Int("limit", 20, "max entries")
		fs.Parse(args[2:])

		hist, err := client.WalletHistory(user, *limit)
		if err != nil {
			fatal("wallet_history: %v", err)
		}
		if len(hist.Transactions) == 0 {
			fmt.Println("No transactions")
			return
		}
		for _, tx := range hist.Transactions {
			line := fmt.Sprintf("%s  %-9s %12s DOGE  %s",
				tx.CreatedAt.Format("2006-01-02 15:04:05"),
				tx.Type, tx.Amount.Doge, tx.Reason)
			if tx.Status != "confirmed" {
				line += "  [" + tx.Status + "]"
			}
			if tx.TxHash != "" {
				line += "  " + tx.TxHash
			}
			fmt.Println(line)
		}

	case "withdraw":
		fs := flag.NewFlagSet("withdraw", flag.ExitOnError)
		user := fs.String("user", "", "user ID")
		to := fs.String("to", "", "destination address")
		amount := fs.String("amount", "", "amount in DOGE")
		fs.Parse(args[1:])
		if *user == "" || *to == "" || *amount == "" {
			fatal("Usage: dogewatch-cli wallet withdraw --user <u> --to <addr> --amount <doge>")
		}

		res, err := client.Withdraw(*user, *to, *amount)
		if err != nil {
			var rpcErr *rpcclient.RPCError
			if asRPCError(err, &rpcErr) && rpcErr.Data["reference"] != "" {
				fatal("withdrawal outcome unknown: %v\nCheck reference %s before retrying",
					err, rpcErr.Data["reference"])
			}
			fatal("wallet_withdraw: %v", err)
		}
		fmt.Printf("Broadcast:  %s\n", res.TxHash)
		fmt.Printf("Amount:     %s DOGE\n", res.Amount.Doge)
		fmt.Printf("Fee:        %s DOGE\n", res.Fee.Doge)
		fmt.Printf("Reference:  %s\n", res.Reference)

	default:
		fatal("Unknown wallet command: %s", args[0])
	}
}

func printWallet(w *rpc.WalletResult) {
	fmt.Printf("User:     %s\n", w.UserID)
	fmt.Printf("Address:  %s\n", w.Address)
	fmt.Printf("Balance:  %s DOGE\n", w.Balance.Doge)
	fmt.Printf("Earned:   %s DOGE\n", w.TotalEarned.Doge)
	fmt.Printf("Spent:    %s DOGE\n", w.TotalSpent.Doge)
}

// ── case ────────────────────────────────────────────────────────────────

func cmdCase(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: dogewatch-cli case <open|show|list|vote|resolve|pending> ...")
	}

	switch args[0] {
	case "open":
		fs := flag.NewFlagSet("open", flag.ExitOnError)
		submitter := fs.String("submitter", "", "submitter user ID")
		bounty := fs.String("bounty", "", "bounty in DOGE")
		desc := fs.String("desc", "", "case description")
		evidenceFile := fs.String("evidence", "", "evidence JSON file")
		fs.Parse(args[1:])
		if *submitter == "" || *bounty == "" {
			fatal("Usage: dogewatch-cli case open --submitter <u> --bounty <doge> --desc <text> [--evidence <file.json>]")
		}

		var evidence interface{}
		if *evidenceFile != "" {
			data, err := os.ReadFile(*evidenceFile)
			if err != nil {
				fatal("read evidence: %v", err)
			}
			if err := json.Unmarshal(data, &evidence); err != nil {
				fatal("evidence must be valid JSON: %v", err)
			}
		}

		c, err := client.CaseOpen(*submitter, *bounty, *desc, evidence)
		if err != nil {
			fatal("case_open: %v", err)
		}
		printCase(c)

	case "show":
		if len(args) < 2 {
			fatal("Usage: dogewatch-cli case show <id>")
		}
		detail, err := client.CaseGet(args[1])
		if err != nil {
			fatal("case_get: %v", err)
		}
		printCase(detail.Case)
		if len(detail.Votes) == 0 {
			fmt.Println("Votes:    none")
			return
		}
		fmt.Printf("Votes:    %d\n", len(detail.Votes))
		for _, v := range detail.Votes {
			line := fmt.Sprintf("  %-16s %-8s %10s DOGE", v.VoterID, v.Choice, v.Stake.Doge)
			if v.PayoutStatus != "pending" {
				line += fmt.Sprintf("  %s", v.PayoutStatus)
				if v.Payout.Koinu > 0 {
					line += fmt.Sprintf(" (+%s DOGE)", v.Payout.Doge)
				}
			}
			fmt.Println(line)
		}

	case "list":
		fs := flag.NewFlagSet("list", flag.ExitOnError)
		status := fs.String("status", "", "filter by status")
		fs.Parse(args[1:])

		cases, err := client.CaseList(*status)
		if err != nil {
			fatal("case_list: %v", err)
		}
		if len(cases) == 0 {
			fmt.Println("No cases")
			return
		}
		for i := range cases {
			c := &cases[i]
			fmt.Printf("%s  %-10s %10s DOGE  %s\n",
				c.ID, c.Status, c.Bounty.Doge, c.Description)
		}

	case "vote":
		fs := flag.NewFlagSet("vote", flag.ExitOnError)
		caseID := fs.String("case", "", "case ID")
		voter := fs.String("voter", "", "voter user ID")
		choice := fs.String("choice", "", "valid or invalid")
		stake := fs.String("stake", "", "stake in DOGE")
		fs.Parse(args[1:])
		if *caseID == "" || *voter == "" || *choice == "" || *stake == "" {
			fatal("Usage: dogewatch-cli case vote --case <id> --voter <u> --choice <valid|invalid> --stake <doge>")
		}

		v, err := client.CaseVote(*caseID, *voter, *choice, *stake)
		if err != nil {
			fatal("case_vote: %v", err)
		}
		fmt.Printf("Vote:    %s\n", v.ID)
		fmt.Printf("Choice:  %s\n", v.Choice)
		fmt.Printf("Stake:   %s DOGE\n", v.Stake.Doge)

	case "resolve":
		if len(args) < 2 {
			fatal("Usage: dogewatch-cli case resolve <id>")
		}
		res, err := client.CaseResolve(args[1])
		if err != nil {
			fatal("case_resolve: %v", err)
		}
		fmt.Printf("Case:          %s\n", res.CaseID)
		fmt.Printf("Outcome:       %s\n", res.Status)
		if res.Winner != "" {
			fmt.Printf("Winning side:  %s\n", res.Winner)
		}
		fmt.Printf("Valid stake:   %s DOGE\n", res.ValidStake.Doge)
		fmt.Printf("Invalid stake: %s DOGE\n", res.InvalidStake.Doge)
		fmt.Printf("Platform fee:  %s DOGE\n", res.PlatformFee.Doge)
		if len(res.Payouts) > 0 {
			fmt.Println("Payouts:")
			for user, amount := range res.Payouts {
				fmt.Printf("  %-16s %s DOGE\n", user, amount.Doge)
			}
		}

	case "pending":
		cases, err := client.CasePending()
		if err != nil {
			fatal("case_pending: %v", err)
		}
		if len(cases) == 0 {
			fmt.Println("No cases awaiting resolution")
			return
		}
		for i := range cases {
			c := &cases[i]
			fmt.Printf("%s  closed %s  %10s DOGE  %s\n",
				c.ID, c.VerificationClosesAt.Format("2006-01-02 15:04"),
				c.Bounty.Doge, c.Description)
		}

	default:
		fatal("Unknown case command: %s", args[0])
	}
}

func printCase(c *rpc.CaseResult) {
	fmt.Printf("Case:     %s\n", c.ID)
	fmt.Printf("Status:   %s\n", c.Status)
	fmt.Printf("Submitter:%s\n", " "+c.SubmitterID)
	fmt.Printf("Bounty:   %s DOGE\n", c.Bounty.Doge)
	if c.Description != "" {
		fmt.Printf("Details:  %s\n", c.Description)
	}
	if c.EvidenceCID != "" {
		fmt.Printf("Evidence: %s\n", c.EvidenceCID)
	}
	fmt.Printf("Closes:   %s\n", c.VerificationClosesAt.Format(time.RFC3339))
	if c.ResolvedAt != nil {
		fmt.Printf("Resolved: %s\n", c.ResolvedAt.Format(time.RFC3339))
	}
}

// ── treasury / tx ───────────────────────────────────────────────────────

func cmdTreasury(client *rpcclient.Client) {
	w, err := client.TreasuryGet()
	if err != nil {
		fatal("treasury_get: %v", err)
	}
	printWallet(w)
}

func cmdTx(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: dogewatch-cli tx <hash>")
	}
	st, err := client.ChainTransaction(args[0])
	if err != nil {
		fatal("chain_getTransaction: %v", err)
	}
	fmt.Printf("Hash:          %s\n", st.Hash)
	fmt.Printf("Confirmations: %d\n", st.Confirmations)
	fmt.Printf("Confirmed:     %t\n", st.Confirmed)
	if st.BlockHeight > 0 {
		fmt.Printf("Block height:  %d\n", st.BlockHeight)
	}
	if st.DoubleSpend {
		fmt.Println("WARNING: double spend detected")
	}
}

// ── Error helpers ───────────────────────────────────────────────────────

func asRPCError(err error, target **rpcclient.RPCError) bool {
	e, ok := err.(*rpcclient.RPCError)
	if ok {
		*target = e
	}
	return ok
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
