package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/example/crewfinder/pkg/core/model"
	"github.com/example/crewfinder/pkg/core/search"
	"github.com/example/crewfinder/pkg/core/selection"
	"github.com/example/crewfinder/pkg/core/services"
)

// runCurationSession runs the search and then an interactive loop over its
// results: the actor toggles candidates in and out of the selection,
// orders them, sets preferred sub-windows, and finally commits. The
// candidate set is fixed for the lifetime of the session
func runCurationSession(app *App, criteria model.SearchCriteria) error {
	result, err := services.SearchResources(app.ctx, app.database, app.database, app.pipeline, app.logger, criteria)
	if err != nil {
		return err
	}

	if len(result.Candidates) == 0 {
		fmt.Println("\nNo resources match the search.")
		return nil
	}

	fmt.Printf("\nFound %d candidates. Type 'help' for commands, 'exit' to leave.\n\n", len(result.Candidates))

	session := selection.NewSession()
	printCandidates(result.Candidates, session, result.Preferences)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmdName, cmdArgs := parts[0], parts[1:]

		switch cmdName {
		case "exit", "quit":
			return nil

		case "help":
			printSessionHelp()

		case "list":
			printCandidates(result.Candidates, session, result.Preferences)

		case "toggle":
			if len(cmdArgs) != 1 {
				fmt.Println("usage: toggle <number>")
				continue
			}
			idx, err := parseIndex(cmdArgs[0], len(result.Candidates))
			if err != nil {
				fmt.Println(err)
				continue
			}
			session = session.Toggle(result.Candidates[idx].Resource.ID)
			printSelection(result.Candidates, session)

		case "order":
			if len(cmdArgs) != 2 {
				fmt.Println("usage: order <from> <to>")
				continue
			}
			from, err := parseIndex(cmdArgs[0], session.Len())
			if err != nil {
				fmt.Println(err)
				continue
			}
			to, err := parseIndex(cmdArgs[1], session.Len())
			if err != nil {
				fmt.Println(err)
				continue
			}
			session = session.Reorder(from, to)
			printSelection(result.Candidates, session)

		case "window":
			if len(cmdArgs) < 3 {
				fmt.Println("usage: window <number> <start> <end> [notes...]")
				continue
			}
			session = setWindow(app, result.Candidates, session, cmdArgs)

		case "clear":
			if len(cmdArgs) != 1 {
				fmt.Println("usage: clear <number>")
				continue
			}
			session = clearWindow(app, result.Candidates, session, cmdArgs[0])

		case "commit":
			if len(cmdArgs) != 1 {
				fmt.Println("usage: commit <trade_id>")
				continue
			}
			if err := commitSelection(app, session, result.Candidates, cmdArgs[0], criteria.Window); err != nil {
				fmt.Printf("%s %v\n\n", color.New(color.FgRed).Sprint("✗"), err)
				continue
			}
			return nil

		default:
			fmt.Printf("Unknown command: %s (type 'help' for available commands)\n", cmdName)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}
	return nil
}

func setWindow(app *App, candidates []search.Candidate, session selection.Session, args []string) selection.Session {
	idx, err := parseIndex(args[0], len(candidates))
	if err != nil {
		fmt.Println(err)
		return session
	}
	window, err := parseWindow(args[1], args[2])
	if err != nil {
		fmt.Println(err)
		return session
	}

	candidate := candidates[idx]
	pref := &model.PreferredWindow{Window: window, Notes: strings.Join(args[3:], " ")}

	updated, err := session.SetPreferredWindow(candidate.Resource.ID, candidate.Resource.Availability, pref)
	if err != nil {
		fmt.Println(err)
		return session
	}

	if err := services.SavePreferredWindow(app.ctx, app.database, app.logger, candidate.Resource.ID, pref); err != nil {
		fmt.Printf("%s window kept for this session but not stored: %v\n",
			color.New(color.FgYellow).Sprint("!"), err)
	}
	return updated
}

func clearWindow(app *App, candidates []search.Candidate, session selection.Session, arg string) selection.Session {
	idx, err := parseIndex(arg, len(candidates))
	if err != nil {
		fmt.Println(err)
		return session
	}
	candidate := candidates[idx]

	updated, err := session.SetPreferredWindow(candidate.Resource.ID, candidate.Resource.Availability, nil)
	if err != nil {
		fmt.Println(err)
		return session
	}

	if err := services.SavePreferredWindow(app.ctx, app.database, app.logger, candidate.Resource.ID, nil); err != nil {
		fmt.Printf("%s stored window not cleared: %v\n", color.New(color.FgYellow).Sprint("!"), err)
	}
	return updated
}

func commitSelection(app *App, session selection.Session, candidates []search.Candidate, tradeID string, searchWindow model.Window) error {
	result, err := services.CommitAllocations(
		app.ctx,
		app.database,
		app.gmailClient,
		app.logger,
		session,
		candidates,
		tradeID,
		searchWindow,
	)
	if err != nil {
		return err
	}

	if result.Replayed {
		fmt.Printf("\n%s This selection was already committed; showing the stored allocations.\n\n",
			color.New(color.FgYellow).Sprint("!"))
	} else {
		fmt.Printf("\n%s Allocations committed!\n\n", color.New(color.FgGreen).Sprint("✓"))
	}

	warningsByID := make(map[string]services.DispatchWarning, len(result.Warnings))
	for _, w := range result.Warnings {
		warningsByID[w.AllocationID] = w
	}

	for _, alloc := range result.Allocations {
		marker := color.New(color.FgGreen).Sprint("✓")
		detail := "invitation sent"
		if w, failed := warningsByID[alloc.ID]; failed {
			marker = color.New(color.FgYellow).Sprint("!")
			detail = fmt.Sprintf("invitation failed: %v", w.Err)
		} else if result.Replayed {
			detail = alloc.ID
		}
		fmt.Printf("  %d. %s %s %s to %s (%s)\n",
			alloc.Priority+1,
			marker,
			alloc.ResourceID,
			alloc.Window.Start.Format("2006-01-02"),
			alloc.Window.End.Format("2006-01-02"),
			detail,
		)
	}
	fmt.Println()

	if len(result.Warnings) > 0 {
		app.logger.Warn("Some invitations were not delivered", zap.Int("count", len(result.Warnings)))
		fmt.Printf("%d invitation(s) were not delivered; the allocations exist and can be re-invited manually.\n\n",
			len(result.Warnings))
	}

	return nil
}

func printCandidates(candidates []search.Candidate, session selection.Session, stored map[string]model.PreferredWindow) {
	fmt.Println("Candidates:")
	for i, c := range candidates {
		marker := " "
		if session.Contains(c.Resource.ID) {
			marker = color.New(color.FgGreen).Sprint("●")
		}

		rate := ""
		if c.Resource.HourlyRate != nil {
			rate = fmt.Sprintf(", %.2f/h", *c.Resource.HourlyRate)
		}
		geocoded := ""
		if c.Geocoded {
			geocoded = color.New(color.FgYellow).Sprint(" ~")
		}

		fmt.Printf("  %2d. %s %s (%s) %.1f km%s - %d person(s)%s, available %s to %s\n",
			i+1,
			marker,
			c.Resource.Name,
			c.Resource.City,
			c.DistanceKm,
			geocoded,
			c.Resource.PersonCount,
			rate,
			c.Resource.Availability.Start.Format("2006-01-02"),
			c.Resource.Availability.End.Format("2006-01-02"),
		)

		if pref, ok := stored[c.Resource.ID]; ok {
			fmt.Printf("        stored window: %s to %s %s\n",
				pref.Window.Start.Format("2006-01-02"),
				pref.Window.End.Format("2006-01-02"),
				pref.Notes)
		}
	}
	fmt.Println()
}

func printSelection(candidates []search.Candidate, session selection.Session) {
	if session.Len() == 0 {
		fmt.Println("Selection is empty.")
		return
	}

	byID := make(map[string]search.Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.Resource.ID] = c
	}

	fmt.Println("Selection (priority order):")
	for i, member := range session.Members() {
		c := byID[member.ResourceID]
		windowInfo := ""
		if member.Preferred != nil {
			windowInfo = fmt.Sprintf(" [%s to %s]",
				member.Preferred.Window.Start.Format("2006-01-02"),
				member.Preferred.Window.End.Format("2006-01-02"))
		}
		fmt.Printf("  %d. %s (%s)%s\n", i+1, c.Resource.Name, member.ResourceID, windowInfo)
	}
	fmt.Println()
}

func printSessionHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  list                                Show all candidates")
	fmt.Println("  toggle <number>                     Select or deselect a candidate")
	fmt.Println("  order <from> <to>                   Move a selected candidate to a new position")
	fmt.Println("  window <number> <start> <end> [notes...]")
	fmt.Println("                                      Set a preferred window for a selected candidate")
	fmt.Println("  clear <number>                      Clear the preferred window again")
	fmt.Println("  commit <trade_id>                   Commit the selection and send invitations")
	fmt.Println("  exit, quit                          Leave without committing")
	fmt.Println()
}
