package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"durakv/internal/client"
)

func main() {
	address := flag.String("addr", "127.0.0.1:8080", "Server address")
	flag.Parse()

	c, err := client.Connect(*address, 5*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connect error: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	fmt.Printf("Connected to %s\n", *address)
	fmt.Println("Commands: get <key> | put <key> <value> | delete <key> | scan <start> <end> | ping | quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}
		runCommand(c, line)
	}
}

func runCommand(c *client.DatabaseClient, line string) {
	fields := strings.Fields(line)

	switch fields[0] {
	case "get":
		if len(fields) != 2 {
			fmt.Println("usage: get <key>")
			return
		}
		value, err := c.Get(fields[1])
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		fmt.Println(string(value))

	case "put":
		if len(fields) < 3 {
			fmt.Println("usage: put <key> <value>")
			return
		}
		value := strings.Join(fields[2:], " ")
		if err := c.Put(fields[1], []byte(value)); err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		fmt.Println("OK")

	case "delete":
		if len(fields) != 2 {
			fmt.Println("usage: delete <key>")
			return
		}
		if err := c.Delete(fields[1]); err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		fmt.Println("OK")

	case "scan":
		if len(fields) != 3 {
			fmt.Println("usage: scan <start> <end>")
			return
		}
		pairs, err := c.Scan(fields[1], fields[2])
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		for _, pair := range pairs {
			fmt.Printf("%s = %s\n", pair.Key, pair.Value)
		}
		fmt.Printf("(%d pairs)\n", len(pairs))

	case "ping":
		latency, err := c.Ping()
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		fmt.Printf("PONG (%v)\n", latency)

	default:
		fmt.Printf("unknown command %q\n", fields[0])
	}
}
