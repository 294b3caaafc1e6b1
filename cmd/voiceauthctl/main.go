// Command voiceauthctl is a scriptable client for voiceauthd: enroll,
// verify, or delete a user's voiceprint from the command line.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "enroll":
		runUpload("enroll", args)
	case "verify":
		runUpload("verify", args)
	case "delete":
		runDelete(args)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: voiceauthctl <enroll|verify|delete> -addr <addr> -user <id> [-file <path>] [-format wav|mp3|m4a|ogg]")
}

func runUpload(cmd string, args []string) {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "voiceauthd base address")
	user := fs.String("user", "", "user id")
	file := fs.String("file", "", "path to audio file")
	format := fs.String("format", "wav", "container format (wav, mp3, m4a, ogg)")
	_ = fs.Parse(args)

	if *user == "" || *file == "" {
		usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fatalf("read %s: %v", *file, err)
	}

	url := fmt.Sprintf("%s/users/%s/%s?format=%s&filename=%s", *addr, *user, cmd, *format, *file)
	resp, err := http.Post(url, "application/octet-stream", bytes.NewReader(data))
	if err != nil {
		fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	printResponse(resp)
}

func runDelete(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "voiceauthd base address")
	user := fs.String("user", "", "user id")
	_ = fs.Parse(args)

	if *user == "" {
		usage()
		os.Exit(2)
	}

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/users/%s", *addr, *user), nil)
	if err != nil {
		fatalf("build request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	printResponse(resp)
}

func printResponse(resp *http.Response) {
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		fmt.Fprintf(os.Stderr, "voiceauthd: %s: %s\n", resp.Status, string(body))
		os.Exit(1)
	}
	if len(body) == 0 {
		fmt.Println(resp.Status)
		return
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return
	}
	fmt.Println(pretty.String())
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
