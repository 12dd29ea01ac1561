package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/skillpath/skillpath/internal/domain"
)

func cmdSkill(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: skillpath skill <save|list>")
	}

	switch args[0] {
	case "save":
		return cmdSkillSave(args[1:])
	case "list":
		return cmdSkillList()
	default:
		return fmt.Errorf("unknown skill command: %s", args[0])
	}
}

func cmdSkillSave(args []string) error {
	fs := flag.NewFlagSet("skill save", flag.ExitOnError)
	name := fs.String("name", "", "skill name")
	duration := fs.String("duration", "", "how long you have practiced")
	achievements := fs.String("achievements", "", "comma-separated achievements")
	fs.Parse(args)

	if *name == "" {
		return fmt.Errorf("-name is required")
	}

	draft := domain.NewSkillDraft(*name)
	draft.SetDuration(*duration)
	for _, achievement := range strings.Split(*achievements, ",") {
		draft.AddAchievement(achievement)
	}

	client := newClient()
	skill, err := client.SaveSkill(context.Background(), draft)
	if err != nil {
		return fmt.Errorf("save skill: %w", err)
	}

	fmt.Printf("Saved %s", skill.Name)
	if skill.Duration != "" {
		fmt.Printf(" (%s)", skill.Duration)
	}
	fmt.Println()
	for _, achievement := range skill.Achievements {
		fmt.Printf("  - %s\n", achievement)
	}
	return nil
}

func cmdSkillList() error {
	client := newClient()

	skills, err := client.Skills(context.Background())
	if err != nil {
		return fmt.Errorf("list skills: %w", err)
	}

	if len(skills) == 0 {
		fmt.Println("No saved skills yet.")
		return nil
	}

	for _, skill := range skills {
		fmt.Printf("%s", skill.Name)
		if skill.Duration != "" {
			fmt.Printf(" (%s)", skill.Duration)
		}
		fmt.Println()
		for _, achievement := range skill.Achievements {
			fmt.Printf("  - %s\n", achievement)
		}
	}
	return nil
}
