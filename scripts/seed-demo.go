package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"os"
)

// Development seeder: creates a demo profile, throws a handful of anonymous
// questions at it and answers some, so the dashboard and the public page
// both have something to show.
//
// Usage: go run scripts/seed-demo.go [username]

const apiBase = "http://localhost:8080/api/v1"

var sampleQuestions = []string{
	"What's the best advice you've ever received?",
	"Coffee or tea?",
	"What are you reading right now?",
	"If you could live anywhere, where would it be?",
	"What's a skill you wish you had?",
	"What's your most controversial food opinion?",
}

var sampleAnswers = []string{
	"Honestly, just start before you feel ready.",
	"Coffee in the morning, tea after lunch. I refuse to pick.",
	"Re-reading The Left Hand of Darkness, it holds up.",
}

type question struct {
	ID           string `json:"id"`
	QuestionText string `json:"questionText"`
	IsAnswered   bool   `json:"isAnswered"`
}

func main() {
	username := fmt.Sprintf("demo%04d", rand.Intn(10000))
	if len(os.Args) > 1 {
		username = os.Args[1]
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		fatal("cookie jar: %v", err)
	}
	authed := &http.Client{Jar: jar}
	anon := &http.Client{}

	fmt.Printf("Creating user %q...\n", username)
	if err := post(authed, "/auth/signup", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "demopass123",
	}, nil); err != nil {
		fatal("signup: %v", err)
	}

	fmt.Printf("Asking %d anonymous questions...\n", len(sampleQuestions))
	for _, text := range sampleQuestions {
		if err := post(anon, "/users/"+username+"/questions", map[string]string{
			"questionText": text,
		}, nil); err != nil {
			fatal("ask: %v", err)
		}
	}

	var inbox []question
	if err := get(authed, "/questions", &inbox); err != nil {
		fatal("inbox: %v", err)
	}

	fmt.Printf("Answering %d of them...\n", len(sampleAnswers))
	for i, answer := range sampleAnswers {
		if i >= len(inbox) {
			break
		}
		if err := post(authed, "/questions/"+inbox[i].ID+"/answer", map[string]string{
			"answerText": answer,
		}, nil); err != nil {
			fatal("answer: %v", err)
		}
	}

	fmt.Println()
	fmt.Printf("Done. Public profile:  /u/%s\n", username)
	fmt.Printf("Login: %s@example.com / demopass123\n", username)
}

func post(client *http.Client, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := client.Post(apiBase+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	return handle(resp, out)
}

func get(client *http.Client, path string, out any) error {
	resp, err := client.Get(apiBase + path)
	if err != nil {
		return err
	}
	return handle(resp, out)
}

func handle(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s returned %d: %s", resp.Request.URL.Path, resp.StatusCode, data)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
