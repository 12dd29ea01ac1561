package main

import (
	"fmt"
	"os"
)

// Version is set at build time via ldflags
var Version = "dev"

const defaultDaemonAddr = "http://127.0.0.1:8080"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "signup":
		err = cmdSignUp(os.Args[2:])
	case "signin":
		err = cmdSignIn(os.Args[2:])
	case "signout":
		err = cmdSignOut()
	case "whoami":
		err = cmdWhoAmI()
	case "catalog":
		err = cmdCatalog(os.Args[2:])
	case "skill":
		err = cmdSkill(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("skillpath %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`SkillPath - Track the skills you are building

Usage:
  skillpath <command> [arguments]

Account Commands:
  signup          Create an account
  signin          Sign in and store the session
  signout         Sign out and clear the session
  whoami          Show the current session

Catalog Commands:
  catalog         Browse the skill catalog
  catalog -search <term>
                  Filter the catalog by name

Skill Commands:
  skill save      Save a skill with duration and achievements
  skill list      List your saved skills

Other:
  help            Show this help message
  version         Show version information

Examples:
  skillpath signin -email you@example.com
  skillpath catalog winter                # Winter subcategory
  skillpath catalog -search curling       # Filter by name
  skillpath skill save -name Curling -duration "2 years"`)
}

// daemonAddr resolves the daemon address from the environment.
func daemonAddr() string {
	if addr := os.Getenv("SKILLPATH_ADDR"); addr != "" {
		return addr
	}
	return defaultDaemonAddr
}
