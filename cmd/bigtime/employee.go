package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bigtime/bigtime/internal/model"
	"github.com/bigtime/bigtime/internal/store"
)

var employeeCmd = &cobra.Command{
	Use:     "employee",
	Aliases: []string{"emp"},
	Short:   "Manage the employee roster",
}

var empFlags struct {
	name       string
	phone      string
	pin        string
	department string
	dob        string
	hireDate   string
	ssn        string
	period     string
	rate       float64
	deactivate bool
}

func addEmployeeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&empFlags.name, "name", "", "full name")
	f.StringVar(&empFlags.phone, "phone", "", "phone number")
	f.StringVar(&empFlags.pin, "pin", "", "kiosk PIN")
	f.StringVar(&empFlags.department, "department", "", "department")
	f.StringVar(&empFlags.dob, "dob", "", "date of birth (yyyy-mm-dd)")
	f.StringVar(&empFlags.hireDate, "hire-date", "", "hire date (yyyy-mm-dd)")
	f.StringVar(&empFlags.ssn, "ssn", "", "SSN")
	f.StringVar(&empFlags.period, "period", "", "pay period: hourly or monthly")
	f.Float64Var(&empFlags.rate, "rate", 0, "pay rate")
	f.BoolVar(&empFlags.deactivate, "deactivated", false, "mark the employee deactivated")
}

var employeeAddCmd = &cobra.Command{
	Use:   "add <badge>",
	Short: "Add an employee",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		e := &model.Employee{
			Badge:       args[0],
			Name:        empFlags.name,
			PhoneNumber: empFlags.phone,
			PIN:         empFlags.pin,
			Department:  empFlags.department,
			DateOfBirth: empFlags.dob,
			HireDate:    empFlags.hireDate,
			SSN:         empFlags.ssn,
			Period:      model.PayPeriod(empFlags.period),
			Rate:        empFlags.rate,
			Deactivated: empFlags.deactivate,
		}
		if err := a.db.InsertEmployee(ctx, e); err != nil {
			return err
		}
		fmt.Printf("Added %s (badge %s)\n", e.Name, e.Badge)
		pushChanges(ctx, a)
		return nil
	},
}

var employeeUpdateCmd = &cobra.Command{
	Use:   "update <badge>",
	Short: "Update an employee; only the flags you pass change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		e, err := a.db.GetEmployeeByBadge(ctx, args[0])
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no employee with badge %s", args[0])
			}
			return err
		}

		f := cmd.Flags()
		if f.Changed("name") {
			e.Name = empFlags.name
		}
		if f.Changed("phone") {
			e.PhoneNumber = empFlags.phone
		}
		if f.Changed("pin") {
			e.PIN = empFlags.pin
		}
		if f.Changed("department") {
			e.Department = empFlags.department
		}
		if f.Changed("dob") {
			e.DateOfBirth = empFlags.dob
		}
		if f.Changed("hire-date") {
			e.HireDate = empFlags.hireDate
		}
		if f.Changed("ssn") {
			e.SSN = empFlags.ssn
		}
		if f.Changed("period") {
			e.Period = model.PayPeriod(empFlags.period)
		}
		if f.Changed("rate") {
			e.Rate = empFlags.rate
		}
		if f.Changed("deactivated") {
			e.Deactivated = empFlags.deactivate
		}

		if err := a.db.UpdateEmployee(ctx, e); err != nil {
			return err
		}
		fmt.Printf("Updated %s\n", e.Badge)
		pushChanges(ctx, a)
		return nil
	},
}

var employeeRenameCmd = &cobra.Command{
	Use:   "rename <old-badge> <new-badge>",
	Short: "Move an employee and all their shifts to a new badge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.db.RenameBadge(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Renamed badge %s to %s\n", args[0], args[1])
		pushChanges(ctx, a)
		return nil
	},
}

var employeeRemoveCmd = &cobra.Command{
	Use:   "remove <badge>",
	Short: "Delete an employee and all their shifts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.db.DeleteEmployee(ctx, args[0]); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no employee with badge %s", args[0])
			}
			return err
		}
		fmt.Printf("Removed %s\n", args[0])
		pushChanges(ctx, a)
		return nil
	},
}

var employeeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List employees",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		employees, err := a.db.ListEmployees(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "BADGE\tNAME\tDEPARTMENT\tPERIOD\tRATE\tACTIVE")
		for _, e := range employees {
			active := "yes"
			if e.Deactivated {
				active = "no"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%s\n",
				e.Badge, e.Name, e.Department, e.Period, e.Rate, active)
		}
		return w.Flush()
	},
}

func init() {
	addEmployeeFlags(employeeAddCmd)
	addEmployeeFlags(employeeUpdateCmd)
	employeeCmd.AddCommand(employeeAddCmd)
	employeeCmd.AddCommand(employeeUpdateCmd)
	employeeCmd.AddCommand(employeeRenameCmd)
	employeeCmd.AddCommand(employeeRemoveCmd)
	employeeCmd.AddCommand(employeeListCmd)
	rootCmd.AddCommand(employeeCmd)
}
