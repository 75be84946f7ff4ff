package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/eduapp/core"
	"github.com/trezcool/eduapp/core/attendance"
)

type seedStudent struct {
	studentID string
	name      string
}

var (
	seedYears = []string{"FE", "SE", "TE", "BE"}

	seedStudents = map[string][]seedStudent{
		"FE": {
			{"FE001", "Amit Sharma"}, {"FE002", "Priya Patel"}, {"FE003", "Rahul Kumar"}, {"FE004", "Sneha Gupta"},
			{"FE005", "Vikram Singh"}, {"FE006", "Anjali Reddy"}, {"FE007", "Deepak Joshi"}, {"FE008", "Kavita Nair"},
			{"FE009", "Raj Malhotra"}, {"FE010", "Meera Shah"},
		},
		"SE": {
			{"SE001", "Arjun Verma"}, {"SE002", "Pooja Khanna"}, {"SE003", "Sanjay Gupta"}, {"SE004", "Anita Desai"},
			{"SE005", "Nikhil Rao"}, {"SE006", "Divya Iyer"}, {"SE007", "Karan Bhatia"}, {"SE008", "Swati Mishra"},
			{"SE009", "Aditya Chopra"}, {"SE010", "Riya Kapoor"},
		},
		"TE": {
			{"TE001", "Rohit Sharma"}, {"TE002", "Neha Singh"}, {"TE003", "Manish Patel"}, {"TE004", "Lakshmi Menon"},
			{"TE005", "Suresh Kumar"}, {"TE006", "Padma Venkatesh"}, {"TE007", "Gopal Krishna"}, {"TE008", "Uma Mahesh"},
			{"TE009", "Harish Chandra"}, {"TE010", "Anusha Das"},
		},
		"BE": {
			{"BE001", "Prateek Aggarwal"}, {"BE002", "Shweta Rastogi"}, {"BE003", "Ajay Sahoo"}, {"BE004", "Richa Sinha"},
			{"BE005", "Vivek Pandey"}, {"BE006", "Shruti Sharma"}, {"BE007", "Abhishek Roy"}, {"BE008", "Nisha Choudhary"},
			{"BE009", "Siddharth Jain"}, {"BE010", "Pallavi Tripathi"},
		},
	}
)

// seed creates the default years and their students. Existing rows are left untouched.
func (cli *commandLine) seed() error {
	ctx := context.Background()

	existing, err := cli.store.QueryYears(ctx)
	if err != nil {
		return errors.Wrap(err, "querying years")
	}
	years := make(map[string]attendance.Year, len(existing))
	for _, y := range existing {
		years[y.Name] = y
	}

	var yearsAdded, studentsAdded int
	for _, name := range seedYears {
		year, ok := years[name]
		if !ok {
			year, err = cli.store.CreateYear(ctx, attendance.Year{Name: name, CreatedAt: core.NowUTC()})
			if err != nil {
				return errors.Wrapf(err, "creating year %s", name)
			}
			yearsAdded++
			fmt.Fprintf(cli.out, "created year %s (ID: %s)\n", year.Name, year.ID)
		}

		for _, s := range seedStudents[name] {
			_, err = cli.store.CreateStudent(ctx, attendance.Student{
				Name:      s.name,
				StudentID: s.studentID,
				YearID:    year.ID,
				CreatedAt: core.NowUTC(),
			})
			switch {
			case err == nil:
				studentsAdded++
			case errors.Cause(err) != attendance.ErrStudentExists:
				return errors.Wrapf(err, "creating student %s", s.studentID)
			}
		}
	}

	fmt.Fprintf(cli.out, "seed complete: %d years & %d students added\n", yearsAdded, studentsAdded)
	return nil
}
