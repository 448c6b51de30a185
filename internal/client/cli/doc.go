// Package cli implements the echolater command-line client on top of cobra.
//
// Every invocation loads the configuration, opens the local session
// database and dials the server before the chosen command runs. Commands
// that act on ideas restore the session saved by `login` or `register`;
// expired access tokens are refreshed transparently by the gRPC client.
//
// Commands:
//
//	register, login, logout          account and session
//	record <file> [--note]           upload a recording and file it
//	note <text>                      file a text idea
//	list [--category] [--search]     browse ideas page by page
//	show <id>, done <id>, rm <id>    inspect, complete, delete
//	audio <id> -o <file>             download the recording
//	shell                            interactive prompt running the above
package cli
