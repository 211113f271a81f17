package cmd

import (
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"
)

var (
	tunnelSSHAddr    string
	tunnelUser       string
	tunnelKeyPath    string
	tunnelRemoteAddr string
	tunnelLocalPort  string
)

var tunnelCmd = &cobra.Command{
	Use:   "tunnel",
	Short: "Open an SSH tunnel to the database through a bastion",
	Long: `Forwards a local port to the database host through a bastion, so local
runs of serve or consume can reach a database in a private subnet.`,
	Run: func(cmd *cobra.Command, args []string) {
		setLogging(logLevel)

		if err := runTunnel(); err != nil {
			log.Fatal().Err(err).Msg("tunnel failed")
		}
	},
}

func init() {
	rootCmd.AddCommand(tunnelCmd)
	tunnelCmd.Flags().StringVar(&tunnelSSHAddr, "ssh", "", "bastion address as host:port")
	tunnelCmd.Flags().StringVar(&tunnelUser, "user", "ec2-user", "SSH user on the bastion")
	tunnelCmd.Flags().StringVar(&tunnelKeyPath, "key", "", "path to the SSH private key")
	tunnelCmd.Flags().StringVar(&tunnelRemoteAddr, "remote", "", "database address as host:port, as seen from the bastion")
	tunnelCmd.Flags().StringVar(&tunnelLocalPort, "local-port", "5432", "local port to listen on")
	tunnelCmd.MarkFlagRequired("ssh")
	tunnelCmd.MarkFlagRequired("key")
	tunnelCmd.MarkFlagRequired("remote")
}

// sshDial connects to the bastion using key auth.
func sshDial() (*ssh.Client, error) {
	key, err := os.ReadFile(tunnelKeyPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read private key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("unable to parse private key: %w", err)
	}

	sshConfig := &ssh.ClientConfig{
		User: tunnelUser,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		// Dev bastions are rebuilt too often to pin host keys
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	}

	return ssh.Dial("tcp", tunnelSSHAddr, sshConfig)
}

func runTunnel() error {
	client, err := sshDial()
	if err != nil {
		return err
	}
	defer client.Close()

	listener, err := net.Listen("tcp", "localhost:"+tunnelLocalPort)
	if err != nil {
		return err
	}
	defer listener.Close()

	log.Info().
		Str("local", "localhost:"+tunnelLocalPort).
		Str("remote", tunnelRemoteAddr).
		Msg("Tunnel started")

	for {
		localConn, err := listener.Accept()
		if err != nil {
			log.Error().Err(err).Msg("Failed to accept local connection")
			continue
		}

		remoteConn, err := client.Dial("tcp", tunnelRemoteAddr)
		if err != nil {
			log.Error().Err(err).Msg("Failed to connect to remote host")
			localConn.Close()
			continue
		}

		go forward(localConn, remoteConn)
	}
}

// forward copies bytes both ways and closes both ends when either side
// hangs up.
func forward(localConn, remoteConn net.Conn) {
	defer localConn.Close()
	defer remoteConn.Close()

	go io.Copy(remoteConn, localConn)
	io.Copy(localConn, remoteConn)
}
